package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer is the expected iss claim. Empty skips the check.
	Issuer string

	// Audience is the expected aud claim. Empty skips the check.
	Audience string

	// RolesClaim is the claim listing the operator's roles.
	// Default: "roles"
	RolesClaim string

	// Methods lists accepted signing algorithms. Default: HS256
	Methods []string

	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration

	// Clock returns the current time. Default: time.Now
	Clock func() time.Time
}

// KeyProvider retrieves signing keys for JWT validation.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider provides a single HMAC secret.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a static key provider.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	return p.key, nil
}

// JWTAuthenticator validates bearer tokens.
type JWTAuthenticator struct {
	config JWTConfig
	keys   KeyProvider
	parser *jwt.Parser
}

// NewJWTAuthenticator creates a new JWT authenticator.
func NewJWTAuthenticator(config JWTConfig, keys KeyProvider) *JWTAuthenticator {
	if config.RolesClaim == "" {
		config.RolesClaim = "roles"
	}
	if len(config.Methods) == 0 {
		config.Methods = []string{jwt.SigningMethodHS256.Alg()}
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(config.Methods),
		jwt.WithLeeway(config.Leeway),
		jwt.WithTimeFunc(config.Clock),
		jwt.WithIssuedAt(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &JWTAuthenticator{
		config: config,
		keys:   keys,
		parser: jwt.NewParser(opts...),
	}
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string {
	return "jwt"
}

// Supports returns true if the request carries a bearer token.
func (a *JWTAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	_, ok := bearerToken(req.GetHeader("Authorization"))
	return ok
}

// Authenticate validates the bearer token.
func (a *JWTAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	raw, ok := bearerToken(req.GetHeader("Authorization"))
	if !ok {
		return AuthFailure(ErrMissingCredentials, a.Name()), nil
	}

	claims := jwt.MapClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		return a.keys.GetKey(ctx, kid)
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return AuthFailure(ErrTokenExpired, a.Name()), nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return AuthFailure(ErrTokenMalformed, a.Name()), nil
	default:
		return AuthFailure(ErrInvalidCredentials, a.Name()), nil
	}

	return AuthSuccess(a.identity(claims)), nil
}

func (a *JWTAuthenticator) identity(claims jwt.MapClaims) *Identity {
	id := &Identity{
		Method: AuthMethodJWT,
		Claims: make(map[string]any, len(claims)),
	}
	for k, v := range claims {
		id.Claims[k] = v
	}
	id.Principal, _ = claims.GetSubject()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}

	switch roles := claims[a.config.RolesClaim].(type) {
	case []any:
		for _, r := range roles {
			if s, ok := r.(string); ok {
				id.Roles = append(id.Roles, s)
			}
		}
	case string:
		id.Roles = strings.Fields(roles)
	}
	return id
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

var (
	_ Authenticator = (*JWTAuthenticator)(nil)
	_ KeyProvider   = (*StaticKeyProvider)(nil)
)
