package model

import "time"

// BaseRarityScore is the score every new species starts with.  The
// score only ever grows through validated observations:
// score = base + validatedCount/5.
const BaseRarityScore = 1.0

// Species represents a row in the `species` table.  Names are unique
// and immutable after creation.  A soft-deleted species keeps its row;
// DeletedAt/DeletedBy record who removed it and when.
type Species struct {
	ID          uint64     // species.id
	Name        string     // species.name (unique)
	AuthorID    uint64     // species.author_id
	RarityScore float64    // species.rarity_score
	DeletedAt   *time.Time // species.deleted_at (nil = live)
	DeletedBy   *uint64    // species.deleted_by
	CreatedAt   time.Time  // species.created_at
}
