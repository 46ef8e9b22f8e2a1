package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyssal/species-observation/internal/model"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	u := model.User{ID: 42, Email: "diver@abyss.dev", Username: "diver", Role: model.RoleExpert}

	access, err := NewAccessToken("secret", u, 15)
	require.NoError(t, err)
	require.NotEmpty(t, access.Token)

	claims, err := ParseAccessToken("secret", access.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "diver@abyss.dev", claims.Email)
	assert.Equal(t, "diver", claims.Username)
	assert.Equal(t, model.RoleExpert, claims.Role)
}

func TestParseAccessTokenWrongSecret(t *testing.T) {
	u := model.User{ID: 1, Email: "a@b.c", Username: "a", Role: model.RoleUser}
	access, err := NewAccessToken("secret", u, 15)
	require.NoError(t, err)

	_, err = ParseAccessToken("other-secret", access.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenExpired(t *testing.T) {
	u := model.User{ID: 1, Email: "a@b.c", Username: "a", Role: model.RoleUser}
	access, err := NewAccessToken("secret", u, -1)
	require.NoError(t, err)

	_, err = ParseAccessToken("secret", access.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenGarbage(t *testing.T) {
	_, err := ParseAccessToken("secret", "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
