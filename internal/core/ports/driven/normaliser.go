package driven

import "github.com/seclane/pulsefeed/internal/core/domain"

// Normaliser maps a source record into canonical entities. It must be
// pure: no I/O, and deterministic for the same inputs. guessedMalware
// maps pulse tags to downstream malware IDs resolved by the caller
// beforehand; it is empty when malware guessing is disabled.
type Normaliser interface {
	Normalise(pulse domain.Pulse, guessedMalware map[string]string) []domain.Entity
}
