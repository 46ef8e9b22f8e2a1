package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/abyssal/species-observation/internal/model"
)

type HistoryRepo struct{ DB *sql.DB }

func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{DB: db} }

const historyColumns = "id,action,performed_by,performed_by_role,target_type,target_id,observation_author_id,observation_species_id,species_name,metadata,created_at"

// Insert appends a history entry. The table is append-only: there are
// no update or delete operations on it anywhere in the codebase.
func (r *HistoryRepo) Insert(ctx context.Context, e model.HistoryEntry) (uint64, error) {
	meta := []byte("{}")
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return 0, err
		}
		meta = b
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO history (action, performed_by, performed_by_role, target_type, target_id, observation_author_id, observation_species_id, species_name, metadata) VALUES (?,?,?,?,?,?,?,?,?)",
		e.Action, e.PerformedBy, e.PerformedByRole, e.TargetType, e.TargetID,
		e.ObservationAuthorID, e.ObservationSpeciesID, e.SpeciesName, meta)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListByAuthor returns entries whose target observation was authored by
// the given user, newest first.
func (r *HistoryRepo) ListByAuthor(ctx context.Context, authorID uint64) ([]model.HistoryEntry, error) {
	return r.query(ctx,
		"SELECT "+historyColumns+" FROM history WHERE observation_author_id=? ORDER BY created_at DESC",
		authorID)
}

// ListBySpecies returns entries targeting the species directly plus
// entries for observations of that species, newest first.
func (r *HistoryRepo) ListBySpecies(ctx context.Context, speciesID uint64) ([]model.HistoryEntry, error) {
	return r.query(ctx,
		"SELECT "+historyColumns+" FROM history WHERE (target_type=? AND target_id=?) OR observation_species_id=? ORDER BY created_at DESC",
		model.TargetSpecies, speciesID, speciesID)
}

func (r *HistoryRepo) query(ctx context.Context, q string, args ...any) ([]model.HistoryEntry, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		var meta sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &e.PerformedBy, &e.PerformedByRole, &e.TargetType,
			&e.TargetID, &e.ObservationAuthorID, &e.ObservationSpeciesID, &e.SpeciesName, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		if meta.Valid && meta.String != "" {
			_ = json.Unmarshal([]byte(meta.String), &e.Metadata)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
