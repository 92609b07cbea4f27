package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role tags the three principal kinds the platform serves.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleInstitution Role = "institution"
	RoleLearner     Role = "learner"
)

// ValidRole reports whether raw names a known principal role.
func ValidRole(raw string) bool {
	switch Role(raw) {
	case RoleAdmin, RoleInstitution, RoleLearner:
		return true
	}
	return false
}

// Session binds a bearer token to a live principal. A token authorizes only
// while a matching unexpired session row exists; deleting the row forces
// logout without any token blacklist.
type Session struct {
	ID          string    `db:"id" json:"id"`
	Token       string    `db:"token" json:"-"`
	PrincipalID string    `db:"principal_id" json:"principal_id"`
	Role        Role      `db:"role" json:"role"`
	ExpiresAt   time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	LastSeenAt  time.Time `db:"last_seen_at" json:"last_seen_at"`
}

// Claims is the JWT payload for access tokens. InstitutionStatus is set only
// for institution principals.
type Claims struct {
	PrincipalID       string            `json:"principal_id"`
	Role              Role              `json:"role"`
	Email             string            `json:"email"`
	Name              string            `json:"name"`
	InstitutionStatus InstitutionStatus `json:"institution_status,omitempty"`
	jwt.RegisteredClaims
}
