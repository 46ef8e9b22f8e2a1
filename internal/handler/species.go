package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/abyssal/species-observation/internal/middleware"
	"github.com/abyssal/species-observation/internal/model"
	"github.com/abyssal/species-observation/internal/repository"
)

// SpeciesHandler exposes the species registry.
type SpeciesHandler struct {
	Species      *repository.SpeciesRepo
	Observations *repository.ObservationRepo
}

func NewSpeciesHandler(s *repository.SpeciesRepo, o *repository.ObservationRepo) *SpeciesHandler {
	return &SpeciesHandler{Species: s, Observations: o}
}

type createSpeciesReq struct {
	Name string `json:"name"`
}

type speciesPart struct {
	ID          uint64     `json:"id"`
	Name        string     `json:"name"`
	AuthorID    uint64     `json:"authorId"`
	RarityScore float64    `json:"rarityScore"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

func toSpeciesPart(s model.Species) speciesPart {
	return speciesPart{
		ID:          s.ID,
		Name:        s.Name,
		AuthorID:    s.AuthorID,
		RarityScore: s.RarityScore,
		CreatedAt:   s.CreatedAt,
		DeletedAt:   s.DeletedAt,
	}
}

type observationPart struct {
	ID          uint64     `json:"id"`
	SpeciesID   uint64     `json:"speciesId"`
	AuthorID    uint64     `json:"authorId"`
	Description string     `json:"description"`
	DangerLevel int        `json:"dangerLevel"`
	Status      string     `json:"status"`
	ValidatedBy *uint64    `json:"validatedBy"`
	ValidatedAt *time.Time `json:"validatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func toObservationPart(o model.Observation) observationPart {
	return observationPart{
		ID:          o.ID,
		SpeciesID:   o.SpeciesID,
		AuthorID:    o.AuthorID,
		Description: o.Description,
		DangerLevel: o.DangerLevel,
		Status:      o.Status,
		ValidatedBy: o.ValidatedBy,
		ValidatedAt: o.ValidatedAt,
		DeletedAt:   o.DeletedAt,
		CreatedAt:   o.CreatedAt,
	}
}

// Create registers a new species with the base rarity score. Names are
// unique across the registry and immutable afterwards.
func (h *SpeciesHandler) Create(c echo.Context) error {
	var req createSpeciesReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "species name is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Species.Create(ctx, name, middleware.UserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNameExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "a species with this name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create species failed"})
	}

	sp, err := h.Species.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load species failed"})
	}
	return c.JSON(http.StatusCreated, toSpeciesPart(sp))
}

// List returns every species. ?sortByRarity=true orders by rarity
// descending instead of creation time.
func (h *SpeciesHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Species.List(ctx, c.QueryParam("sortByRarity") == "true")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]speciesPart, 0, len(list))
	for _, s := range list {
		out = append(out, toSpeciesPart(s))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one species by id.
func (h *SpeciesHandler) Get(c echo.Context) error {
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
	return c.JSON(http.StatusOK, toSpeciesPart(sp))
}

// ListObservations returns all observations of a species, newest
// first. The taxonomy aggregator reads this endpoint during fan-out.
func (h *SpeciesHandler) ListObservations(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid species id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Species.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "species not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	list, err := h.Observations.ListBySpecies(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]observationPart, 0, len(list))
	for _, o := range list {
		out = append(out, toObservationPart(o))
	}
	return c.JSON(http.StatusOK, out)
}
