package handler

import (
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyssal/species-observation/internal/model"
	"github.com/abyssal/species-observation/internal/repository"
)

func testUserAdminHandler(t *testing.T) (*UserAdminHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserAdminHandler(repository.NewUserRepo(db)), mock
}

func adminUserRows(u model.User) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "email", "username", "password_hash", "role", "reputation", "created_at", "updated_at"}).
		AddRow(u.ID, u.Email, u.Username, "hash", u.Role, u.Reputation, now, now)
}

func TestUpdateRoleExpertCannotAssignAdmin(t *testing.T) {
	h, mock := testUserAdminHandler(t)

	// An expert patching their own id must not be able to escalate
	// beyond the relay's promotion target.
	e := echo.New()
	c, rec := newAuthedContext(e, http.MethodPatch, "/api/users/7/role",
		`{"role":"ADMIN"}`, 7, model.RoleExpert)
	c.SetParamNames("id")
	c.SetParamValues("7")

	require.NoError(t, h.UpdateRole(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRoleExpertCannotAssignUser(t *testing.T) {
	h, mock := testUserAdminHandler(t)

	e := echo.New()
	c, rec := newAuthedContext(e, http.MethodPatch, "/api/users/3/role",
		`{"role":"USER"}`, 9, model.RoleExpert)
	c.SetParamNames("id")
	c.SetParamValues("3")

	require.NoError(t, h.UpdateRole(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRoleExpertMayPromoteToExpert(t *testing.T) {
	h, mock := testUserAdminHandler(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role=? WHERE id=?")).
		WithArgs(model.RoleExpert, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .+ FROM users WHERE id=.").
		WithArgs(uint64(3)).
		WillReturnRows(adminUserRows(model.User{ID: 3, Email: "u@x.y", Username: "u", Role: model.RoleExpert, Reputation: 10}))

	e := echo.New()
	c, rec := newAuthedContext(e, http.MethodPatch, "/api/users/3/role",
		`{"role":"EXPERT"}`, 9, model.RoleExpert)
	c.SetParamNames("id")
	c.SetParamValues("3")

	require.NoError(t, h.UpdateRole(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRoleAdminAssignsAnyRole(t *testing.T) {
	h, mock := testUserAdminHandler(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role=? WHERE id=?")).
		WithArgs(model.RoleAdmin, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .+ FROM users WHERE id=.").
		WithArgs(uint64(3)).
		WillReturnRows(adminUserRows(model.User{ID: 3, Email: "u@x.y", Username: "u", Role: model.RoleAdmin, Reputation: 10}))

	e := echo.New()
	c, rec := newAuthedContext(e, http.MethodPatch, "/api/users/3/role",
		`{"role":"ADMIN"}`, 1, model.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues("3")

	require.NoError(t, h.UpdateRole(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReputationExpertArbitraryDeltaForbidden(t *testing.T) {
	h, mock := testUserAdminHandler(t)

	e := echo.New()
	c, rec := newAuthedContext(e, http.MethodPatch, "/api/users/7/reputation",
		`{"points":1000}`, 7, model.RoleExpert)
	c.SetParamNames("id")
	c.SetParamValues("7")

	require.NoError(t, h.UpdateReputation(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReputationExpertModerationDeltaAllowed(t *testing.T) {
	h, mock := testUserAdminHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM users WHERE id=. FOR UPDATE").
		WithArgs(uint64(5)).
		WillReturnRows(adminUserRows(model.User{ID: 5, Email: "a@x.y", Username: "a", Role: model.RoleUser, Reputation: 2}))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET reputation=?, role=? WHERE id=?")).
		WithArgs(5, model.RoleUser, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e := echo.New()
	c, rec := newAuthedContext(e, http.MethodPatch, "/api/users/5/reputation",
		`{"points":3}`, 9, model.RoleExpert)
	c.SetParamNames("id")
	c.SetParamValues("5")

	require.NoError(t, h.UpdateReputation(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReputationAdminUnrestricted(t *testing.T) {
	h, mock := testUserAdminHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM users WHERE id=. FOR UPDATE").
		WithArgs(uint64(5)).
		WillReturnRows(adminUserRows(model.User{ID: 5, Email: "a@x.y", Username: "a", Role: model.RoleUser, Reputation: 0}))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET reputation=?, role=? WHERE id=?")).
		WithArgs(1000, model.RoleExpert, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e := echo.New()
	c, rec := newAuthedContext(e, http.MethodPatch, "/api/users/5/reputation",
		`{"points":1000}`, 1, model.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues("5")

	require.NoError(t, h.UpdateReputation(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
