package service

import (
	"context"
	"log"

	"github.com/abyssal/species-observation/internal/model"
	"github.com/abyssal/species-observation/internal/repository"
)

// HistoryRecorder appends moderation actions to the audit log. Each
// entry is denormalized at write time: observation targets get their
// author id, species id and species name attached, species targets get
// their name, so later queries need no joins against records that may
// have changed.
type HistoryRecorder struct {
	Observations *repository.ObservationRepo
	Species      *repository.SpeciesRepo
	History      *repository.HistoryRepo
}

func NewHistoryRecorder(o *repository.ObservationRepo, s *repository.SpeciesRepo, h *repository.HistoryRepo) *HistoryRecorder {
	return &HistoryRecorder{Observations: o, Species: s, History: h}
}

// Record writes one history entry. The audit trail is best-effort:
// a failed write is logged but never fails the moderation action that
// triggered it, which has already committed.
func (r *HistoryRecorder) Record(ctx context.Context, action string, actorID uint64, actorRole, targetType string, targetID uint64, metadata map[string]any) {
	entry := model.HistoryEntry{
		Action:          action,
		PerformedBy:     actorID,
		PerformedByRole: actorRole,
		TargetType:      targetType,
		TargetID:        targetID,
		Metadata:        metadata,
	}

	switch targetType {
	case model.TargetObservation:
		if obs, err := r.Observations.GetByID(ctx, targetID); err == nil {
			entry.ObservationAuthorID = &obs.AuthorID
			entry.ObservationSpeciesID = &obs.SpeciesID
			if sp, err := r.Species.GetByID(ctx, obs.SpeciesID); err == nil {
				entry.SpeciesName = &sp.Name
			}
		}
	case model.TargetSpecies:
		if sp, err := r.Species.GetByID(ctx, targetID); err == nil {
			entry.SpeciesName = &sp.Name
		}
	}

	if _, err := r.History.Insert(ctx, entry); err != nil {
		log.Printf("history: recording %s on %s %d failed: %v", action, targetType, targetID, err)
	}
}
