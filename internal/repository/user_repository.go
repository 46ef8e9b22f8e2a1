package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/abyssal/species-observation/internal/model"
	"github.com/abyssal/species-observation/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,username,password_hash,role,reputation,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.Reputation, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

// Create inserts a new user with role USER and reputation 0 and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, username, password string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, username, password_hash, role, reputation) VALUES (?,?,?,?,0)",
		email, username, hash, model.RoleUser)
	if err != nil {
		// MySQL duplicate-key errors carry code 1062 and name the index.
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "1062") {
			if strings.Contains(msg, "username") {
				return 0, ErrUsernameExists
			}
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByIdentifier fetches a user by email or username. The same lookup
// serves login with either identifier.
func (r *UserRepo) GetByIdentifier(ctx context.Context, identifier string) (model.User, error) {
	identifier = strings.TrimSpace(identifier)
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? OR username=? LIMIT 1",
		strings.ToLower(identifier), identifier))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns all users ordered by creation time, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.Reputation, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetRole overwrites a user's role and returns the updated record.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, role string) (model.User, error) {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", role, id)
	if err != nil {
		return model.User{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either the user is missing or the role is unchanged; re-read
		// to tell the two apart.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return model.User{}, getErr
		}
	}
	return r.GetByID(ctx, id)
}

// AdjustReputation applies a reputation delta to a single user record.
// The result is clamped at zero, and the promotion rule is applied in
// the same transaction: reputation >= 10 promotes a USER to EXPERT,
// dropping below 10 demotes an EXPERT back to USER. ADMIN is never
// changed by this rule. The row is locked for the duration of the
// read-then-write so concurrent deltas serialize on the record.
func (r *UserRepo) AdjustReputation(ctx context.Context, id uint64, points int) (model.User, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var u model.User
	err = tx.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? FOR UPDATE", id).
		Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.Reputation, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}

	u.Reputation += points
	if u.Reputation < 0 {
		u.Reputation = 0
	}
	switch {
	case u.Reputation >= model.ExpertThreshold && u.Role == model.RoleUser:
		u.Role = model.RoleExpert
	case u.Reputation < model.ExpertThreshold && u.Role == model.RoleExpert:
		u.Role = model.RoleUser
	}

	if _, err = tx.ExecContext(ctx,
		"UPDATE users SET reputation=?, role=? WHERE id=?",
		u.Reputation, u.Role, u.ID); err != nil {
		return model.User{}, err
	}
	if err = tx.Commit(); err != nil {
		return model.User{}, err
	}
	return u, nil
}
