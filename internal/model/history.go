package model

import "time"

// Actions recorded in the history table.
const (
	ActionValidated = "VALIDATED"
	ActionRejected  = "REJECTED"
	ActionDeleted   = "DELETED"
	ActionRestored  = "RESTORED"
)

// Target types a history entry can point at.
const (
	TargetObservation = "observation"
	TargetSpecies     = "species"
	TargetUser        = "user"
)

// HistoryEntry represents a row in the append-only `history` table.
// The Observation* and SpeciesName fields are denormalized at write
// time so audit queries stay valid even after the target changes or is
// soft-deleted.
type HistoryEntry struct {
	ID              uint64
	Action          string
	PerformedBy     uint64
	PerformedByRole string
	TargetType      string
	TargetID        uint64

	ObservationAuthorID  *uint64 // set for observation targets
	ObservationSpeciesID *uint64 // set for observation targets
	SpeciesName          *string // set for species targets

	Metadata  map[string]any // free-form snapshot of the target
	CreatedAt time.Time
}
