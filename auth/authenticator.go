package auth

import (
	"context"
	"net/http"
)

// Authenticator validates credentials and returns an identity.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: Authenticate returns (nil, error) for internal errors and
//     (result, nil) for credential failures; check result.Authenticated.
type Authenticator interface {
	// Name returns a unique identifier for this authenticator.
	Name() string

	// Supports returns true if the request carries credentials this
	// authenticator understands.
	Supports(ctx context.Context, req *AuthRequest) bool

	// Authenticate validates credentials and returns a result.
	Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error)
}

// AuthRequest contains the information needed for authentication.
type AuthRequest struct {
	Header http.Header
}

// GetHeader returns the first value for a header, or "".
func (r *AuthRequest) GetHeader(key string) string {
	return r.Header.Get(key)
}

// AuthResult is the result of an authentication attempt.
type AuthResult struct {
	Authenticated bool

	// Identity is set only when Authenticated is true.
	Identity *Identity

	// Error is set only when Authenticated is false.
	Error error

	// Method names the authenticator that produced the result.
	Method string
}

// AuthSuccess creates a successful authentication result.
func AuthSuccess(identity *Identity) *AuthResult {
	return &AuthResult{
		Authenticated: true,
		Identity:      identity,
		Method:        string(identity.Method),
	}
}

// AuthFailure creates a failed authentication result.
func AuthFailure(err error, method string) *AuthResult {
	return &AuthResult{
		Authenticated: false,
		Error:         err,
		Method:        method,
	}
}
