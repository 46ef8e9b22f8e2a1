package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/abyssal/species-observation/internal/middleware"
	"github.com/abyssal/species-observation/internal/model"
	"github.com/abyssal/species-observation/internal/repository"
	"github.com/abyssal/species-observation/internal/service"
)

// ModerationHandler covers the expert surface: soft deletion and
// restoration of observations and species, plus the audit trail
// queries. Deletion never removes rows; a deleted record keeps its
// data and can be restored with full fidelity.
type ModerationHandler struct {
	Observations *repository.ObservationRepo
	Species      *repository.SpeciesRepo
	History      *repository.HistoryRepo
	Rarity       *service.RarityService
	Recorder     *service.HistoryRecorder
}

func NewModerationHandler(o *repository.ObservationRepo, s *repository.SpeciesRepo, h *repository.HistoryRepo, r *service.RarityService, rec *service.HistoryRecorder) *ModerationHandler {
	return &ModerationHandler{Observations: o, Species: s, History: h, Rarity: r, Recorder: rec}
}

// DeleteObservation soft-deletes an observation. Deleting a VALIDATED
// observation does not change the species' validated count under the
// current rarity policy, but the recount runs anyway so the score is
// refreshed if the policy ever tightens.
func (h *ModerationHandler) DeleteObservation(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid observation id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	obs, err := h.Observations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "observation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if obs.DeletedAt != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "observation is already deleted"})
	}

	actorID, actorRole := middleware.UserID(c), middleware.Role(c)
	now := time.Now().UTC()
	if err := h.Observations.SoftDelete(ctx, id, actorID, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "observation is already deleted"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	if obs.Status == model.StatusValidated {
		if _, err := h.Rarity.Recompute(ctx, obs.SpeciesID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rarity update failed"})
		}
	}

	h.Recorder.Record(ctx, model.ActionDeleted, actorID, actorRole, model.TargetObservation, id, map[string]any{
		"status":      obs.Status,
		"description": obs.Description,
		"dangerLevel": obs.DangerLevel,
	})

	obs.DeletedAt = &now
	obs.DeletedBy = &actorID
	return c.JSON(http.StatusOK, echo.Map{"message": "observation deleted", "observation": toObservationPart(obs)})
}

// RestoreObservation clears the soft-delete marker.
func (h *ModerationHandler) RestoreObservation(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid observation id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	obs, err := h.Observations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "observation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if obs.DeletedAt == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "observation is not deleted"})
	}

	if err := h.Observations.Restore(ctx, id); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "observation is not deleted"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "restore failed"})
	}

	if obs.Status == model.StatusValidated {
		if _, err := h.Rarity.Recompute(ctx, obs.SpeciesID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rarity update failed"})
		}
	}

	actorID, actorRole := middleware.UserID(c), middleware.Role(c)
	h.Recorder.Record(ctx, model.ActionRestored, actorID, actorRole, model.TargetObservation, id, map[string]any{
		"status": obs.Status,
	})

	obs.DeletedAt = nil
	obs.DeletedBy = nil
	return c.JSON(http.StatusOK, echo.Map{"message": "observation restored", "observation": toObservationPart(obs)})
}

// DeleteSpecies soft-deletes a species record. Its observations are
// untouched; they stay queryable and keep feeding the audit trail.
func (h *ModerationHandler) DeleteSpecies(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid species id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sp, err := h.Species.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "species not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if sp.DeletedAt != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "species is already deleted"})
	}

	actorID, actorRole := middleware.UserID(c), middleware.Role(c)
	now := time.Now().UTC()
	if err := h.Species.SoftDelete(ctx, id, actorID, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "species is already deleted"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	h.Recorder.Record(ctx, model.ActionDeleted, actorID, actorRole, model.TargetSpecies, id, map[string]any{
		"name":        sp.Name,
		"rarityScore": sp.RarityScore,
	})

	sp.DeletedAt = &now
	sp.DeletedBy = &actorID
	return c.JSON(http.StatusOK, echo.Map{"message": "species deleted", "species": toSpeciesPart(sp)})
}

// RestoreSpecies clears the soft-delete marker on a species.
func (h *ModerationHandler) RestoreSpecies(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid species id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sp, err := h.Species.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "species not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if sp.DeletedAt == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "species is not deleted"})
	}

	if err := h.Species.Restore(ctx, id); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "species is not deleted"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "restore failed"})
	}

	actorID, actorRole := middleware.UserID(c), middleware.Role(c)
	h.Recorder.Record(ctx, model.ActionRestored, actorID, actorRole, model.TargetSpecies, id, map[string]any{
		"name": sp.Name,
	})

	sp.DeletedAt = nil
	sp.DeletedBy = nil
	return c.JSON(http.StatusOK, echo.Map{"message": "species restored", "species": toSpeciesPart(sp)})
}

type historyPart struct {
	ID              uint64         `json:"id"`
	Action          string         `json:"action"`
	PerformedBy     uint64         `json:"performedBy"`
	PerformedByRole string         `json:"performedByRole"`
	TargetType      string         `json:"targetType"`
	TargetID        uint64         `json:"targetId"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

func toHistoryPart(e model.HistoryEntry) historyPart {
	return historyPart{
		ID:              e.ID,
		Action:          e.Action,
		PerformedBy:     e.PerformedBy,
		PerformedByRole: e.PerformedByRole,
		TargetType:      e.TargetType,
		TargetID:        e.TargetID,
		Metadata:        e.Metadata,
		CreatedAt:       e.CreatedAt,
	}
}

// UserHistory lists moderation actions taken on the given user's
// observations, newest first.
func (h *ModerationHandler) UserHistory(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.History.ListByAuthor(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]historyPart, 0, len(entries))
	for _, e := range entries {
		out = append(out, toHistoryPart(e))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"userId":       id,
		"totalActions": len(out),
		"history":      out,
	})
}

// SpeciesHistory lists moderation actions on a species and on its
// observations, newest first.
func (h *ModerationHandler) SpeciesHistory(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid species id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sp, err := h.Species.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "species not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	entries, err := h.History.ListBySpecies(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]historyPart, 0, len(entries))
	for _, e := range entries {
		out = append(out, toHistoryPart(e))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"speciesId":    id,
		"speciesName":  sp.Name,
		"totalActions": len(out),
		"history":      out,
	})
}
