package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/abyssal/species-observation/internal/model"
)

type SpeciesRepo struct{ DB *sql.DB }

func NewSpeciesRepo(db *sql.DB) *SpeciesRepo { return &SpeciesRepo{DB: db} }

const speciesColumns = "id,name,author_id,rarity_score,deleted_at,deleted_by,created_at"

func scanSpecies(row *sql.Row) (model.Species, error) {
	var s model.Species
	err := row.Scan(&s.ID, &s.Name, &s.AuthorID, &s.RarityScore, &s.DeletedAt, &s.DeletedBy, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

// Create inserts a species with the base rarity score and returns its ID.
// The name is unique; a duplicate insert maps to ErrNameExists.
func (r *SpeciesRepo) Create(ctx context.Context, name string, authorID uint64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO species (name, author_id, rarity_score) VALUES (?,?,?)",
		strings.TrimSpace(name), authorID, model.BaseRarityScore)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrNameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a species by id, soft-deleted or not.
func (r *SpeciesRepo) GetByID(ctx context.Context, id uint64) (model.Species, error) {
	return scanSpecies(r.DB.QueryRowContext(ctx,
		"SELECT "+speciesColumns+" FROM species WHERE id=? LIMIT 1", id))
}

// List returns every species record, including soft-deleted ones.
// Callers choose the sort: by rarity descending or by creation time.
func (r *SpeciesRepo) List(ctx context.Context, sortByRarity bool) ([]model.Species, error) {
	order := "created_at DESC"
	if sortByRarity {
		order = "rarity_score DESC"
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+speciesColumns+" FROM species ORDER BY "+order)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Species
	for rows.Next() {
		var s model.Species
		if err := rows.Scan(&s.ID, &s.Name, &s.AuthorID, &s.RarityScore, &s.DeletedAt, &s.DeletedBy, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateRarity persists a freshly computed rarity score.
func (r *SpeciesRepo) UpdateRarity(ctx context.Context, id uint64, score float64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE species SET rarity_score=? WHERE id=?", score, id)
	return err
}

// SoftDelete marks a species deleted. The guard on deleted_at keeps a
// concurrent double-delete from overwriting the original actor.
func (r *SpeciesRepo) SoftDelete(ctx context.Context, id, actorID uint64, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE species SET deleted_at=?, deleted_by=? WHERE id=? AND deleted_at IS NULL",
		at, actorID, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrConflict
	}
	return nil
}

// Restore clears the soft-delete marker.
func (r *SpeciesRepo) Restore(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE species SET deleted_at=NULL, deleted_by=NULL WHERE id=? AND deleted_at IS NOT NULL", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrConflict
	}
	return nil
}
