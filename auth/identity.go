package auth

import (
	"slices"
	"time"
)

// AuthMethod indicates how authentication was performed.
type AuthMethod string

const (
	AuthMethodJWT    AuthMethod = "jwt"
	AuthMethodAPIKey AuthMethod = "api_key"
)

// RoleAdmin grants access to the cache admin routes.
const RoleAdmin = "admin"

// Identity represents an authenticated operator.
type Identity struct {
	// Principal is the unique identifier (subject claim or key owner).
	Principal string

	// Roles gate the admin routes.
	Roles []string

	// Method indicates how authentication was performed.
	Method AuthMethod

	// Claims holds token claims or key metadata.
	Claims map[string]any

	// ExpiresAt is zero when the credential never expires.
	ExpiresAt time.Time
}

// HasRole checks if the identity has a specific role.
func (id *Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

// IsExpired reports whether the credential expired before now.
func (id *Identity) IsExpired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && now.After(id.ExpiresAt)
}
