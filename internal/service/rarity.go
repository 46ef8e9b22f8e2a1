// Package service holds the workflow pieces sitting between handlers
// and repositories: rarity recomputation, the reputation relay, the
// history recorder and the taxonomy aggregation.
package service

import (
	"context"

	"github.com/abyssal/species-observation/internal/repository"
)

// RarityService derives a species' rarity score from its validated
// observation count.
type RarityService struct {
	Species      *repository.SpeciesRepo
	Observations *repository.ObservationRepo
}

func NewRarityService(s *repository.SpeciesRepo, o *repository.ObservationRepo) *RarityService {
	return &RarityService{Species: s, Observations: o}
}

// CalculateRarityScore maps a validated-observation count to a score:
// 1 + count/5.
func CalculateRarityScore(validatedCount int) float64 {
	return 1 + float64(validatedCount)/5
}

// Recompute recounts the species' VALIDATED observations, derives the
// score and persists it, returning the new value. It always does a
// fresh count-then-set rather than an increment, so running it
// redundantly or concurrently converges on the same result.
// Soft-deleted validated observations still count; see DESIGN.md.
func (s *RarityService) Recompute(ctx context.Context, speciesID uint64) (float64, error) {
	count, err := s.Observations.CountValidated(ctx, speciesID)
	if err != nil {
		return 0, err
	}
	score := CalculateRarityScore(count)
	if err := s.Species.UpdateRarity(ctx, speciesID, score); err != nil {
		return 0, err
	}
	return score, nil
}
