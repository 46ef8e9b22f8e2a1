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

func TestDecideConditionalUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE observations SET status=?, validated_by=?, validated_at=? WHERE id=? AND status=?")).
		WithArgs(model.StatusValidated, uint64(5), now, uint64(10), model.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewObservationRepo(db)
	err = repo.Decide(context.Background(), 10, model.StatusValidated, 5, now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecideLostRaceReturnsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	// Another moderator decided the observation between our read and
	// this write, so the status guard matches zero rows.
	mock.ExpectExec("UPDATE observations SET status=.+").
		WithArgs(model.StatusRejected, uint64(5), now, uint64(10), model.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewObservationRepo(db)
	err = repo.Decide(context.Background(), 10, model.StatusRejected, 5, now)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLatestSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Now().UTC().Add(-time.Minute)
	cutoff := time.Now().UTC().Add(-5 * time.Minute)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at FROM observations WHERE author_id=? AND species_id=? AND created_at>=?")).
		WithArgs(uint64(2), uint64(3), cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	repo := NewObservationRepo(db)
	got, found, err := repo.LatestSince(context.Background(), 2, 3, cutoff)
	require.NoError(t, err)
	assert.True(t, found)
	assert.WithinDuration(t, created, got, time.Second)
}

func TestLatestSinceEmptyWindow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cutoff := time.Now().UTC().Add(-5 * time.Minute)
	mock.ExpectQuery("SELECT created_at FROM observations WHERE .+").
		WithArgs(uint64(2), uint64(3), cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))

	repo := NewObservationRepo(db)
	_, found, err := repo.LatestSince(context.Background(), 2, 3, cutoff)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSoftDeleteAlreadyDeleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec("UPDATE observations SET deleted_at=.+ WHERE id=. AND deleted_at IS NULL").
		WithArgs(now, uint64(9), uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewObservationRepo(db)
	err = repo.SoftDelete(context.Background(), 4, 9, now)
	assert.ErrorIs(t, err, ErrConflict)
}
