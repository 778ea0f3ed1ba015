// Package auth guards the cache admin routes.
//
// Operators authenticate with an HS256 bearer token (JWTAuthenticator) or a
// static API key (APIKeyAuthenticator). CompositeAuthenticator tries both and
// RequireRole turns the result into 401/403 responses.
package auth
