package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/abyssal/species-observation/internal/model"
)

type ObservationRepo struct{ DB *sql.DB }

func NewObservationRepo(db *sql.DB) *ObservationRepo { return &ObservationRepo{DB: db} }

const observationColumns = "id,species_id,author_id,description,danger_level,status,validated_by,validated_at,deleted_at,deleted_by,created_at"

func scanObservationRow(row *sql.Row) (model.Observation, error) {
	var o model.Observation
	err := row.Scan(&o.ID, &o.SpeciesID, &o.AuthorID, &o.Description, &o.DangerLevel,
		&o.Status, &o.ValidatedBy, &o.ValidatedAt, &o.DeletedAt, &o.DeletedBy, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	return o, err
}

// Create inserts a new PENDING observation with a server-assigned
// timestamp and returns its ID.
func (r *ObservationRepo) Create(ctx context.Context, speciesID, authorID uint64, description string, dangerLevel int, at time.Time) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO observations (species_id, author_id, description, danger_level, status, created_at) VALUES (?,?,?,?,?,?)",
		speciesID, authorID, description, dangerLevel, model.StatusPending, at)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches an observation by id.
func (r *ObservationRepo) GetByID(ctx context.Context, id uint64) (model.Observation, error) {
	return scanObservationRow(r.DB.QueryRowContext(ctx,
		"SELECT "+observationColumns+" FROM observations WHERE id=? LIMIT 1", id))
}

// ListBySpecies returns all observations for a species, newest first.
func (r *ObservationRepo) ListBySpecies(ctx context.Context, speciesID uint64) ([]model.Observation, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+observationColumns+" FROM observations WHERE species_id=? ORDER BY created_at DESC",
		speciesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Observation
	for rows.Next() {
		var o model.Observation
		if err := rows.Scan(&o.ID, &o.SpeciesID, &o.AuthorID, &o.Description, &o.DangerLevel,
			&o.Status, &o.ValidatedBy, &o.ValidatedAt, &o.DeletedAt, &o.DeletedBy, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// LatestSince returns the creation time of the most recent observation
// by the given author for the given species created at or after the
// cutoff. It backs the 5-minute submission window: found=false means
// the window is clear.
func (r *ObservationRepo) LatestSince(ctx context.Context, authorID, speciesID uint64, cutoff time.Time) (time.Time, bool, error) {
	var createdAt time.Time
	err := r.DB.QueryRowContext(ctx,
		"SELECT created_at FROM observations WHERE author_id=? AND species_id=? AND created_at>=? ORDER BY created_at DESC LIMIT 1",
		authorID, speciesID, cutoff).Scan(&createdAt)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return createdAt, true, nil
}

// Decide moves a PENDING observation to VALIDATED or REJECTED and
// stamps validated_by/validated_at. The status guard in the WHERE
// clause makes the transition conditional: if another moderator decided
// the observation between our read and this write, zero rows match and
// ErrConflict is returned instead of a silent double transition.
func (r *ObservationRepo) Decide(ctx context.Context, id uint64, status string, actorID uint64, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE observations SET status=?, validated_by=?, validated_at=? WHERE id=? AND status=?",
		status, actorID, at, id, model.StatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// CountValidated counts VALIDATED observations for a species.
// Soft-deleted observations are deliberately not excluded; see the
// rarity recomputation policy in DESIGN.md.
func (r *ObservationRepo) CountValidated(ctx context.Context, speciesID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM observations WHERE species_id=? AND status=?",
		speciesID, model.StatusValidated).Scan(&n)
	return n, err
}

// SoftDelete marks an observation deleted.
func (r *ObservationRepo) SoftDelete(ctx context.Context, id, actorID uint64, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE observations SET deleted_at=?, deleted_by=? WHERE id=? AND deleted_at IS NULL",
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
func (r *ObservationRepo) Restore(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE observations SET deleted_at=NULL, deleted_by=NULL WHERE id=? AND deleted_at IS NOT NULL", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrConflict
	}
	return nil
}
