package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/abyssal/species-observation/internal/middleware"
	"github.com/abyssal/species-observation/internal/model"
	"github.com/abyssal/species-observation/internal/queue"
	"github.com/abyssal/species-observation/internal/repository"
	"github.com/abyssal/species-observation/internal/service"
)

// ObservationHandler owns the observation lifecycle: creation under
// the per-author submission window, and the single PENDING ->
// VALIDATED/REJECTED transition with its side effects (rarity
// recomputation, reputation relay, history entry, moderation event).
//
// Side-effect ordering matters: the status transition commits first
// and is authoritative. The rarity update is a same-service write and
// its failure fails the request; the relay, the history entry and the
// queue event are best-effort and never undo the transition.
type ObservationHandler struct {
	Observations *repository.ObservationRepo
	Species      *repository.SpeciesRepo
	Rarity       *service.RarityService
	Relay        *service.ReputationRelay
	History      *service.HistoryRecorder

	// Publish emits a moderation event to the broker. Swappable so
	// tests do not need a running broker.
	Publish func(ctx context.Context, ev queue.ModerationEvent) error
}

func NewObservationHandler(o *repository.ObservationRepo, s *repository.SpeciesRepo, r *service.RarityService, relay *service.ReputationRelay, hist *service.HistoryRecorder) *ObservationHandler {
	return &ObservationHandler{
		Observations: o,
		Species:      s,
		Rarity:       r,
		Relay:        relay,
		History:      hist,
		Publish:      queue.PublishModerationEvent,
	}
}

type createObservationReq struct {
	SpeciesID   uint64 `json:"speciesId"`
	Description string `json:"description"`
	DangerLevel int    `json:"dangerLevel"`
}

// Create inserts a new PENDING observation. The submission window is
// checked strictly before any write: a second observation by the same
// author for the same species within five minutes is rejected with 429
// and the seconds remaining until the window opens again.
func (h *ObservationHandler) Create(c echo.Context) error {
	var req createObservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Description = strings.TrimSpace(req.Description)
	if req.SpeciesID == 0 || req.Description == "" || req.DangerLevel == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "speciesId, description and dangerLevel are required"})
	}
	if utf8.RuneCountInString(req.Description) < model.MinDescriptionLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "description must be at least 10 characters"})
	}
	if req.DangerLevel < 1 || req.DangerLevel > 5 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "dangerLevel must be between 1 and 5"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Species.GetByID(ctx, req.SpeciesID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "species not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	authorID := middleware.UserID(c)
	now := time.Now().UTC()
	latest, found, err := h.Observations.LatestSince(ctx, authorID, req.SpeciesID, now.Add(-model.CreationWindow))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if found {
		wait := int(math.Ceil(latest.Add(model.CreationWindow).Sub(now).Seconds()))
		if wait < 1 {
			wait = 1
		}
		c.Response().Header().Set("Retry-After", strconv.Itoa(wait))
		return c.JSON(http.StatusTooManyRequests, echo.Map{
			"error":       "you must wait before creating another observation for this species",
			"retry_after": wait,
		})
	}

	id, err := h.Observations.Create(ctx, req.SpeciesID, authorID, req.Description, req.DangerLevel, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create observation failed"})
	}
	obs, err := h.Observations.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load observation failed"})
	}
	return c.JSON(http.StatusCreated, toObservationPart(obs))
}

// Validate moves a PENDING observation to VALIDATED. The author check
// and the status check run before any mutation; the conditional update
// in the repository re-verifies the status at write time so a lost
// race with a concurrent moderator surfaces as a conflict.
func (h *ObservationHandler) Validate(c echo.Context) error {
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
	if obs.Status != model.StatusPending {
		return c.JSON(http.StatusConflict, echo.Map{"error": "observation already " + strings.ToLower(obs.Status)})
	}
	actorID, actorRole := middleware.UserID(c), middleware.Role(c)
	if obs.AuthorID == actorID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you cannot validate your own observation"})
	}

	now := time.Now().UTC()
	if err := h.Observations.Decide(ctx, id, model.StatusValidated, actorID, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "observation already decided"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	obs.Status = model.StatusValidated
	obs.ValidatedBy = &actorID
	obs.ValidatedAt = &now

	newScore, err := h.Rarity.Recompute(ctx, obs.SpeciesID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rarity update failed"})
	}

	// Fire-and-forget from here on: the transition is committed and
	// reported as success whatever happens below.
	h.Relay.ObservationValidated(ctx, obs.AuthorID, actorID, actorRole, middleware.Token(c))
	h.History.Record(ctx, model.ActionValidated, actorID, actorRole, model.TargetObservation, id, map[string]any{
		"authorId":    obs.AuthorID,
		"speciesId":   obs.SpeciesID,
		"description": obs.Description,
	})
	h.publishEvent(ctx, model.ActionValidated, actorID, actorRole, obs, newScore)

	resp := toObservationPart(obs)
	return c.JSON(http.StatusOK, echo.Map{
		"id": resp.ID, "speciesId": resp.SpeciesID, "authorId": resp.AuthorID,
		"description": resp.Description, "dangerLevel": resp.DangerLevel,
		"status": resp.Status, "validatedBy": resp.ValidatedBy, "validatedAt": resp.ValidatedAt,
		"createdAt": resp.CreatedAt, "newRarityScore": newScore,
	})
}

// Reject moves a PENDING observation to REJECTED. Rejecting your own
// observation is allowed; only validation has the self check.
func (h *ObservationHandler) Reject(c echo.Context) error {
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
	if obs.Status != model.StatusPending {
		return c.JSON(http.StatusConflict, echo.Map{"error": "observation already " + strings.ToLower(obs.Status)})
	}
	actorID, actorRole := middleware.UserID(c), middleware.Role(c)

	now := time.Now().UTC()
	if err := h.Observations.Decide(ctx, id, model.StatusRejected, actorID, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "observation already decided"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	obs.Status = model.StatusRejected
	obs.ValidatedBy = &actorID
	obs.ValidatedAt = &now

	// A rejection leaves the validated count unchanged, but the
	// recount is idempotent and keeps the score self-correcting.
	score, err := h.Rarity.Recompute(ctx, obs.SpeciesID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rarity update failed"})
	}

	h.Relay.ObservationRejected(ctx, obs.AuthorID, middleware.Token(c))
	h.History.Record(ctx, model.ActionRejected, actorID, actorRole, model.TargetObservation, id, map[string]any{
		"authorId":    obs.AuthorID,
		"speciesId":   obs.SpeciesID,
		"description": obs.Description,
	})
	h.publishEvent(ctx, model.ActionRejected, actorID, actorRole, obs, score)

	return c.JSON(http.StatusOK, toObservationPart(obs))
}

func (h *ObservationHandler) publishEvent(ctx context.Context, action string, actorID uint64, actorRole string, obs model.Observation, score float64) {
	if h.Publish == nil {
		return
	}
	_ = h.Publish(ctx, queue.ModerationEvent{
		Action:      action,
		TargetType:  model.TargetObservation,
		TargetID:    obs.ID,
		ActorID:     actorID,
		ActorRole:   actorRole,
		AuthorID:    obs.AuthorID,
		SpeciesID:   obs.SpeciesID,
		RarityScore: score,
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	})
}
