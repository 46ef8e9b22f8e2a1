package model

import "time"

// Observation lifecycle states.  PENDING is the only state that can
// change; VALIDATED and REJECTED are terminal.
const (
	StatusPending   = "PENDING"
	StatusValidated = "VALIDATED"
	StatusRejected  = "REJECTED"
)

// CreationWindow is the minimum gap between two observations by the
// same author for the same species.
const CreationWindow = 5 * time.Minute

// MinDescriptionLen is the shortest accepted description.
const MinDescriptionLen = 10

// Observation represents a row in the `observations` table.
// ValidatedBy/ValidatedAt are stamped on both validation and rejection
// and record the deciding moderator.
type Observation struct {
	ID          uint64     // observations.id
	SpeciesID   uint64     // observations.species_id
	AuthorID    uint64     // observations.author_id
	Description string     // observations.description
	DangerLevel int        // observations.danger_level (1..5)
	Status      string     // observations.status
	ValidatedBy *uint64    // observations.validated_by (nil while PENDING)
	ValidatedAt *time.Time // observations.validated_at
	DeletedAt   *time.Time // observations.deleted_at (nil = live)
	DeletedBy   *uint64    // observations.deleted_by
	CreatedAt   time.Time  // observations.created_at
}
