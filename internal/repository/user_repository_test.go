package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyssal/species-observation/internal/model"
)

func userRows(u model.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "username", "password_hash", "role", "reputation", "created_at", "updated_at"}).
		AddRow(u.ID, u.Email, u.Username, u.PasswordHash, u.Role, u.Reputation, u.CreatedAt, u.UpdatedAt)
}

func TestAdjustReputationPromotesAtThreshold(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id,email,username,password_hash,role,reputation,created_at,updated_at FROM users WHERE id=? FOR UPDATE")).
		WithArgs(uint64(7)).
		WillReturnRows(userRows(model.User{ID: 7, Email: "e@x.y", Username: "e", Role: model.RoleUser, Reputation: 9, CreatedAt: now, UpdatedAt: now}))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET reputation=?, role=? WHERE id=?")).
		WithArgs(12, model.RoleExpert, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewUserRepo(db)
	u, err := repo.AdjustReputation(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.Equal(t, 12, u.Reputation)
	assert.Equal(t, model.RoleExpert, u.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustReputationDemotesBelowThreshold(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM users WHERE id=. FOR UPDATE").
		WithArgs(uint64(7)).
		WillReturnRows(userRows(model.User{ID: 7, Email: "e@x.y", Username: "e", Role: model.RoleExpert, Reputation: 10, CreatedAt: now, UpdatedAt: now}))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET reputation=?, role=? WHERE id=?")).
		WithArgs(9, model.RoleUser, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewUserRepo(db)
	u, err := repo.AdjustReputation(context.Background(), 7, -1)
	require.NoError(t, err)
	assert.Equal(t, 9, u.Reputation)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustReputationClampsAtZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM users WHERE id=. FOR UPDATE").
		WithArgs(uint64(3)).
		WillReturnRows(userRows(model.User{ID: 3, Email: "n@x.y", Username: "n", Role: model.RoleUser, Reputation: 0, CreatedAt: now, UpdatedAt: now}))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET reputation=?, role=? WHERE id=?")).
		WithArgs(0, model.RoleUser, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewUserRepo(db)
	u, err := repo.AdjustReputation(context.Background(), 3, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, u.Reputation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustReputationNeverTouchesAdmin(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM users WHERE id=. FOR UPDATE").
		WithArgs(uint64(1)).
		WillReturnRows(userRows(model.User{ID: 1, Email: "a@x.y", Username: "a", Role: model.RoleAdmin, Reputation: 2, CreatedAt: now, UpdatedAt: now}))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET reputation=?, role=? WHERE id=?")).
		WithArgs(14, model.RoleAdmin, uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewUserRepo(db)
	u, err := repo.AdjustReputation(context.Background(), 1, 12)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustReputationMissingUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM users WHERE id=. FOR UPDATE").
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	repo := NewUserRepo(db)
	_, err = repo.AdjustReputation(context.Background(), 99, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}
