package domain

import "time"

// Pulse is the raw unit fetched from the threat-intelligence feed:
// a group of indicators sharing context (author, tags, references).
// It is immutable once fetched.
type Pulse struct {
	// ID is the feed's identifier for the pulse.
	ID string

	// Name is the pulse title.
	Name string

	// Description is free-form context provided by the author.
	Description string

	// Author is the feed username that published the pulse.
	Author string

	// Tags are source labels; with malware guessing enabled some of
	// them may resolve to malware families.
	Tags []string

	// TLP is the marking declared by the source, if any.
	TLP string

	// References are URLs backing the pulse.
	References []string

	// Created and Modified are the feed timestamps. Modified drives
	// checkpoint advancement.
	Created  time.Time
	Modified time.Time

	// Indicators are the observables grouped under this pulse.
	Indicators []PulseIndicator
}

// PulseIndicator is a single observable within a pulse, carrying the
// feed's own type vocabulary (e.g. "IPv4", "FileHash-SHA256").
type PulseIndicator struct {
	ID          string
	Type        string
	Value       string
	Title       string
	Description string
	Created     time.Time
}
