package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntityType identifies the kind of canonical entity.
type EntityType string

const (
	// EntityIndicator is an observable (hash, domain, IP, URL, ...).
	EntityIndicator EntityType = "indicator"

	// EntityReport groups the entities produced from one pulse.
	EntityReport EntityType = "report"

	// EntityMalware is a malware family inferred from pulse tags.
	EntityMalware EntityType = "malware"

	// EntityRelationship links two entities (indicates, uses, ...).
	EntityRelationship EntityType = "relationship"

	// EntityIdentity is the author organisation of the feed data.
	EntityIdentity EntityType = "identity"
)

// TLP is a traffic-light-protocol marking controlling downstream sharing.
type TLP string

const (
	TLPWhite TLP = "white"
	TLPGreen TLP = "green"
	TLPAmber TLP = "amber"
	TLPRed   TLP = "red"
)

// ParseTLP parses a marking level. Returns ErrInvalidInput for
// unknown levels.
func ParseTLP(s string) (TLP, error) {
	switch TLP(strings.ToLower(strings.TrimSpace(s))) {
	case TLPWhite:
		return TLPWhite, nil
	case TLPGreen:
		return TLPGreen, nil
	case TLPAmber:
		return TLPAmber, nil
	case TLPRed:
		return TLPRed, nil
	default:
		return "", ErrInvalidInput
	}
}

// Entity is a normalised threat object owned by the publisher until
// acknowledged downstream. Entities are value objects: the normaliser
// produces them deterministically from source records.
type Entity struct {
	// ID is a deterministic identifier derived from the natural key.
	ID string `json:"id"`

	// Type is the entity kind.
	Type EntityType `json:"type"`

	// Value is the observable value for indicators (e.g. the hash or
	// domain). Empty for reports, malware and relationships.
	Value string `json:"value,omitempty"`

	// IndicatorType is the canonical observable vocabulary entry for
	// indicator entities (e.g. "file-hash-sha256").
	IndicatorType string `json:"indicator_type,omitempty"`

	// Name is the display name (report title, malware family).
	Name string `json:"name,omitempty"`

	// Description is free-form context from the source record.
	Description string `json:"description,omitempty"`

	// Confidence is the 0-100 confidence level applied by policy.
	Confidence int `json:"confidence"`

	// Marking is the TLP level applied uniformly by policy.
	Marking TLP `json:"marking"`

	// SourceRef is the identifier of the source record (pulse ID)
	// this entity was derived from.
	SourceRef string `json:"source_ref"`

	// Labels carries report type/status labels and source tags.
	Labels []string `json:"labels,omitempty"`

	// RelType, FromID and ToID are set for relationship entities only.
	RelType string `json:"rel_type,omitempty"`
	FromID  string `json:"from_id,omitempty"`
	ToID    string `json:"to_id,omitempty"`

	// CreatedAt and ModifiedAt mirror the source record timestamps.
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// NaturalKey returns the key used for downstream deduplication.
// Two entities with the same natural key describe the same object.
func (e *Entity) NaturalKey() string {
	switch e.Type {
	case EntityIndicator:
		return string(e.Type) + ":" + e.IndicatorType + ":" + e.Value
	case EntityRelationship:
		return string(e.Type) + ":" + e.RelType + ":" + e.FromID + ":" + e.ToID
	default:
		return string(e.Type) + ":" + e.Name
	}
}

// entityNamespace is the fixed UUID namespace for deterministic IDs.
var entityNamespace = uuid.MustParse("8a4e1c52-0f0d-4c6e-9d2f-5b7a9c3e1d40")

// DeterministicID derives a stable entity ID from a natural key.
// The same key always yields the same ID, which keeps re-runs
// idempotent downstream.
func DeterministicID(t EntityType, naturalKey string) string {
	return string(t) + "--" + uuid.NewSHA1(entityNamespace, []byte(naturalKey)).String()
}
