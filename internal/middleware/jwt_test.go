package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyssal/species-observation/internal/model"
	"github.com/abyssal/species-observation/internal/utils"
)

func TestJWTAuthRejectsMissingToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/species", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := JWTAuth("secret")(func(c echo.Context) error {
		t.Fatal("next should not run")
		return nil
	})
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsBadSignature(t *testing.T) {
	access, err := utils.NewAccessToken("other-secret", model.User{ID: 1, Role: model.RoleUser}, 15)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/species", nil)
	req.Header.Set("Authorization", "Bearer "+access.Token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := JWTAuth("secret")(func(c echo.Context) error { return nil })
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthInjectsClaims(t *testing.T) {
	access, err := utils.NewAccessToken("secret", model.User{ID: 42, Email: "d@a.b", Username: "d", Role: model.RoleExpert}, 15)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/species", nil)
	req.Header.Set("Authorization", "Bearer "+access.Token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := JWTAuth("secret")(func(c echo.Context) error {
		called = true
		assert.Equal(t, uint64(42), UserID(c))
		assert.Equal(t, model.RoleExpert, Role(c))
		assert.Equal(t, access.Token, Token(c))
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	assert.True(t, called)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	run := func(role string) int {
		req := httptest.NewRequest(http.MethodPatch, "/api/observations/1/validate", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set(CtxRole, role)

		h := RequireRole(model.RoleExpert, model.RoleAdmin)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		require.NoError(t, h(c))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, run(model.RoleExpert))
	assert.Equal(t, http.StatusOK, run(model.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, run(model.RoleUser))
	assert.Equal(t, http.StatusForbidden, run(""))
}
