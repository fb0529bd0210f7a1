// Package normalise maps source pulses into canonical threat entities.
// Normalisation is pure and deterministic: the same pulse and the same
// resolved malware guesses always yield the same entities.
package normalise

import (
	"sort"

	"github.com/seclane/pulsefeed/internal/core/domain"
	"github.com/seclane/pulsefeed/internal/core/ports/driven"
)

// Ensure Normaliser implements the port.
var _ driven.Normaliser = (*Normaliser)(nil)

// Policy holds the configured normalisation flags applied uniformly to
// every entity.
type Policy struct {
	// SourceName is the connector identity, used as the author
	// organisation.
	SourceName string

	// Marking is the TLP level applied to all entities.
	Marking domain.TLP

	// Confidence is the 0-100 level stamped on all entities.
	Confidence int

	// ReportStatus and ReportType are the default report labels.
	ReportStatus string
	ReportType   string
}

// indicatorTypes maps the feed's observable vocabulary to the
// canonical one. Types missing here produce no entity.
var indicatorTypes = map[string]string{
	"IPv4":            "ipv4-addr",
	"IPv6":            "ipv6-addr",
	"domain":          "domain-name",
	"hostname":        "hostname",
	"URL":             "url",
	"URI":             "url",
	"email":           "email-addr",
	"FileHash-MD5":    "file-hash-md5",
	"FileHash-SHA1":   "file-hash-sha1",
	"FileHash-SHA256": "file-hash-sha256",
	"FilePath":        "file-path",
	"Mutex":           "mutex",
	"CVE":             "vulnerability",
	"YARA":            "yara-rule",
}

// Normaliser converts pulses into canonical entities under a fixed
// policy.
type Normaliser struct {
	policy Policy
}

// New creates a normaliser with the given policy.
func New(policy Policy) *Normaliser {
	return &Normaliser{policy: policy}
}

// Normalise maps one pulse to its canonical entities: the author
// identity, one report, one indicator per mappable observable,
// malware entities for resolved tag guesses, and the relationships
// wiring them together. A pulse with no extractable indicators still
// yields the identity and report, never an error.
func (n *Normaliser) Normalise(pulse domain.Pulse, guessedMalware map[string]string) []domain.Entity {
	author := n.authorEntity(pulse)
	report := n.reportEntity(pulse)
	indicators := n.indicatorEntities(pulse)
	malwares := n.malwareEntities(pulse, guessedMalware)

	entities := make([]domain.Entity, 0, 2+len(indicators)+len(malwares))
	entities = append(entities, author, report)
	entities = append(entities, indicators...)
	entities = append(entities, malwares...)

	// Indicators indicate each guessed malware.
	for _, ind := range indicators {
		for _, mal := range malwares {
			entities = append(entities, n.relationship(pulse, "indicates", ind.ID, mal.ID))
		}
	}
	// The report groups everything it was derived from.
	for _, e := range append(indicators, malwares...) {
		entities = append(entities, n.relationship(pulse, "related-to", report.ID, e.ID))
	}

	return entities
}

func (n *Normaliser) stamp(e domain.Entity, pulse domain.Pulse) domain.Entity {
	e.Confidence = n.policy.Confidence
	e.Marking = n.policy.Marking
	e.SourceRef = pulse.ID
	e.CreatedAt = pulse.Created
	e.ModifiedAt = pulse.Modified
	return e
}

func (n *Normaliser) authorEntity(pulse domain.Pulse) domain.Entity {
	name := pulse.Author
	if name == "" {
		name = n.policy.SourceName
	}
	e := domain.Entity{
		Type: domain.EntityIdentity,
		Name: name,
	}
	e.ID = domain.DeterministicID(domain.EntityIdentity, e.NaturalKey())
	return n.stamp(e, pulse)
}

func (n *Normaliser) reportEntity(pulse domain.Pulse) domain.Entity {
	labels := []string{n.policy.ReportType, n.policy.ReportStatus}
	labels = append(labels, pulse.Tags...)

	e := domain.Entity{
		Type:        domain.EntityReport,
		Name:        pulse.Name,
		Description: pulse.Description,
		Labels:      labels,
	}
	e.ID = domain.DeterministicID(domain.EntityReport, "report:"+pulse.ID)
	return n.stamp(e, pulse)
}

func (n *Normaliser) indicatorEntities(pulse domain.Pulse) []domain.Entity {
	var out []domain.Entity
	for _, ind := range pulse.Indicators {
		canonical, ok := indicatorTypes[ind.Type]
		if !ok || ind.Value == "" {
			continue
		}
		e := domain.Entity{
			Type:          domain.EntityIndicator,
			Value:         ind.Value,
			IndicatorType: canonical,
			Name:          ind.Title,
			Description:   ind.Description,
		}
		e.ID = domain.DeterministicID(domain.EntityIndicator, e.NaturalKey())
		out = append(out, n.stamp(e, pulse))
	}
	return out
}

// malwareEntities builds malware entities for tags the caller resolved
// downstream. Tags are processed in sorted order so output is stable.
func (n *Normaliser) malwareEntities(pulse domain.Pulse, guessed map[string]string) []domain.Entity {
	if len(guessed) == 0 {
		return nil
	}

	tags := make([]string, 0, len(guessed))
	for tag := range guessed {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	out := make([]domain.Entity, 0, len(tags))
	for _, tag := range tags {
		e := domain.Entity{
			Type:   domain.EntityMalware,
			Name:   tag,
			Labels: []string{"malware"},
		}
		// Prefer the downstream identity so the upsert matches the
		// existing object.
		if id := guessed[tag]; id != "" {
			e.ID = id
		} else {
			e.ID = domain.DeterministicID(domain.EntityMalware, e.NaturalKey())
		}
		out = append(out, n.stamp(e, pulse))
	}
	return out
}

func (n *Normaliser) relationship(pulse domain.Pulse, relType, fromID, toID string) domain.Entity {
	e := domain.Entity{
		Type:    domain.EntityRelationship,
		RelType: relType,
		FromID:  fromID,
		ToID:    toID,
	}
	e.ID = domain.DeterministicID(domain.EntityRelationship, e.NaturalKey())
	return n.stamp(e, pulse)
}
