package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/abyssal/species-observation/internal/model"
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string and Exp its UTC expiration.
// Access tokens are sent in the Authorization header on every call, and
// forwarded unchanged when a service calls another service on the
// caller's behalf.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// ErrInvalidToken is returned by ParseAccessToken for any token that
// fails signature, expiry or claim checks. Callers do not need to
// distinguish the cases; every one of them maps to 401.
var ErrInvalidToken = errors.New("invalid token")

// NewAccessToken builds and signs an HS256 JWT for a user. The claims
// carry the subject (user id), email, username and role so downstream
// services can authorize without a lookup against the identity store.
func NewAccessToken(secret string, u model.User, ttlMin int) (AccessToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":      u.ID,
		"email":    u.Email,
		"username": u.Username,
		"role":     u.Role,
		"exp":      exp.Unix(),
		"iat":      time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// Claims is the subset of token claims the services act on.
type Claims struct {
	UserID   uint64
	Email    string
	Username string
	Role     string
}

// ParseAccessToken verifies the signature and expiry of a raw token and
// extracts its claims. Only HMAC-signed tokens are accepted.
func ParseAccessToken(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	var c Claims
	// Numeric JSON claims decode as float64.
	if sub, ok := mc["sub"].(float64); ok {
		c.UserID = uint64(sub)
	}
	if c.UserID == 0 {
		return Claims{}, ErrInvalidToken
	}
	c.Email, _ = mc["email"].(string)
	c.Username, _ = mc["username"].(string)
	c.Role, _ = mc["role"].(string)
	if c.Role == "" {
		return Claims{}, ErrInvalidToken
	}
	return c, nil
}
