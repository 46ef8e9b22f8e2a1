package model

import "time"

// Roles assignable to a user.  USER and EXPERT move automatically with
// reputation; ADMIN is only ever assigned manually and is never touched
// by the promotion rule.
const (
	RoleUser   = "USER"
	RoleExpert = "EXPERT"
	RoleAdmin  = "ADMIN"
)

// ExpertThreshold is the reputation at which a USER is promoted to
// EXPERT, and below which an EXPERT is demoted back to USER.
const ExpertThreshold = 10

// ValidRole reports whether s is one of the assignable role names.
func ValidRole(s string) bool {
	return s == RoleUser || s == RoleExpert || s == RoleAdmin
}

// User represents a row in the `users` table.  Reputation is always
// kept >= 0; the repository clamps it on update.  PasswordHash is never
// serialized in responses; handlers build their own response types.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email (unique, lowercased)
	Username     string    // users.username (unique)
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	Reputation   int       // users.reputation (>= 0)
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
