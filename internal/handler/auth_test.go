package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/abyssal/species-observation/internal/config"
	"github.com/abyssal/species-observation/internal/model"
	"github.com/abyssal/species-observation/internal/repository"
	"github.com/abyssal/species-observation/internal/utils"
)

func authTestHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 15, BcryptCost: bcrypt.MinCost}
	return NewAuthHandler(cfg, repository.NewUserRepo(db)), mock
}

func loginUserRows(t *testing.T, password string) *sqlmock.Rows {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "email", "username", "password_hash", "role", "reputation", "created_at", "updated_at"}).
		AddRow(7, "diver@abyss.dev", "diver", hash, model.RoleUser, 4, now, now)
}

func TestLoginSuccessIssuesToken(t *testing.T) {
	h, mock := authTestHandler(t)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email=. OR username=.").
		WithArgs("diver", "diver").
		WillReturnRows(loginUserRows(t, "correct-horse"))

	e := echo.New()
	c, rec := newAuthedContext(e, http.MethodPost, "/auth/login",
		`{"identifier":"diver","password":"correct-horse"}`, 0, "")

	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string   `json:"token"`
		User  userPart `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(7), resp.User.ID)
	assert.Equal(t, 4, resp.User.Reputation)

	claims, err := utils.ParseAccessToken("test-secret", resp.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.UserID)
	assert.Equal(t, model.RoleUser, claims.Role)
}

func TestLoginWrongPasswordUniformError(t *testing.T) {
	h, mock := authTestHandler(t)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email=. OR username=.").
		WithArgs("diver", "diver").
		WillReturnRows(loginUserRows(t, "correct-horse"))

	e := echo.New()
	c, rec := newAuthedContext(e, http.MethodPost, "/auth/login",
		`{"identifier":"diver","password":"wrong"}`, 0, "")

	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
}

func TestLoginUnknownUserUniformError(t *testing.T) {
	h, mock := authTestHandler(t)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email=. OR username=.").
		WithArgs("ghost", "ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	e := echo.New()
	c, rec := newAuthedContext(e, http.MethodPost, "/auth/login",
		`{"identifier":"ghost","password":"whatever"}`, 0, "")

	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
}

func TestRegisterValidation(t *testing.T) {
	h, _ := authTestHandler(t)
	e := echo.New()

	cases := []struct {
		name string
		body string
	}{
		{"missing fields", `{"email":"a@b.c"}`},
		{"short username", `{"email":"a@b.c","username":"ab","password":"longenough"}`},
		{"short password", `{"email":"a@b.c","username":"abc","password":"tiny"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newAuthedContext(e, http.MethodPost, "/auth/register", tc.body, 0, "")
			require.NoError(t, h.Register(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
