package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	testSecret = []byte("test-secret")
	testNow    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func signToken(t testing.TB, method jwt.SigningMethod, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "ops@example.com",
		"iss":   "respcache",
		"aud":   "admin",
		"iat":   testNow.Add(-time.Minute).Unix(),
		"exp":   testNow.Add(time.Hour).Unix(),
		"roles": []string{RoleAdmin, "viewer"},
	}
}

func newTestJWT() *JWTAuthenticator {
	return NewJWTAuthenticator(JWTConfig{
		Issuer:   "respcache",
		Audience: "admin",
		Clock:    func() time.Time { return testNow },
	}, NewStaticKeyProvider(testSecret))
}

func bearer(token string) *AuthRequest {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return &AuthRequest{Header: h}
}

func TestJWTAuthenticator_Supports(t *testing.T) {
	a := newTestJWT()

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{"none", "", false},
		{"bearer", "Bearer abc", true},
		{"lowercase scheme", "bearer abc", true},
		{"basic", "Basic dXNlcjpwYXNz", false},
		{"empty token", "Bearer ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Authorization", tt.header)
			}
			if got := a.Supports(context.Background(), &AuthRequest{Header: h}); got != tt.want {
				t.Errorf("Supports() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJWTAuthenticator_Valid(t *testing.T) {
	a := newTestJWT()
	token := signToken(t, jwt.SigningMethodHS256, testSecret, validClaims())

	result, err := a.Authenticate(context.Background(), bearer(token))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !result.Authenticated {
		t.Fatalf("Authenticated = false, error = %v", result.Error)
	}

	id := result.Identity
	if id.Principal != "ops@example.com" {
		t.Errorf("Principal = %q", id.Principal)
	}
	if id.Method != AuthMethodJWT {
		t.Errorf("Method = %q", id.Method)
	}
	if !id.HasRole(RoleAdmin) || !id.HasRole("viewer") {
		t.Errorf("Roles = %v", id.Roles)
	}
	if want := testNow.Add(time.Hour).Truncate(time.Second); !id.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", id.ExpiresAt, want)
	}
	if id.Claims["iss"] != "respcache" {
		t.Errorf("Claims[iss] = %v", id.Claims["iss"])
	}
}

func TestJWTAuthenticator_SpaceSeparatedRoles(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{
		RolesClaim: "scope",
		Clock:      func() time.Time { return testNow },
	}, NewStaticKeyProvider(testSecret))

	claims := jwt.MapClaims{"sub": "svc", "scope": "admin read", "exp": testNow.Add(time.Hour).Unix()}
	result, err := a.Authenticate(context.Background(), bearer(signToken(t, jwt.SigningMethodHS256, testSecret, claims)))
	if err != nil || !result.Authenticated {
		t.Fatalf("Authenticate() = %+v, %v", result, err)
	}
	if !result.Identity.HasRole("admin") || !result.Identity.HasRole("read") {
		t.Errorf("Roles = %v", result.Identity.Roles)
	}
}

func TestJWTAuthenticator_Rejections(t *testing.T) {
	a := newTestJWT()

	mutate := func(f func(jwt.MapClaims)) jwt.MapClaims {
		c := validClaims()
		f(c)
		return c
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{
			name:  "expired",
			token: signToken(t, jwt.SigningMethodHS256, testSecret, mutate(func(c jwt.MapClaims) { c["exp"] = testNow.Add(-time.Minute).Unix() })),
			want:  ErrTokenExpired,
		},
		{
			name:  "wrong key",
			token: signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims()),
			want:  ErrInvalidCredentials,
		},
		{
			name:  "wrong algorithm",
			token: signToken(t, jwt.SigningMethodHS384, testSecret, validClaims()),
			want:  ErrInvalidCredentials,
		},
		{
			name:  "wrong issuer",
			token: signToken(t, jwt.SigningMethodHS256, testSecret, mutate(func(c jwt.MapClaims) { c["iss"] = "elsewhere" })),
			want:  ErrInvalidCredentials,
		},
		{
			name:  "wrong audience",
			token: signToken(t, jwt.SigningMethodHS256, testSecret, mutate(func(c jwt.MapClaims) { c["aud"] = "players" })),
			want:  ErrInvalidCredentials,
		},
		{
			name:  "malformed",
			token: "not-a-jwt",
			want:  ErrTokenMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := a.Authenticate(context.Background(), bearer(tt.token))
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if result.Authenticated {
				t.Fatal("Authenticated = true, want false")
			}
			if !errors.Is(result.Error, tt.want) {
				t.Errorf("Error = %v, want %v", result.Error, tt.want)
			}
			if result.Method != "jwt" {
				t.Errorf("Method = %q", result.Method)
			}
		})
	}
}

func TestJWTAuthenticator_MissingHeader(t *testing.T) {
	result, err := newTestJWT().Authenticate(context.Background(), &AuthRequest{Header: http.Header{}})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !errors.Is(result.Error, ErrMissingCredentials) {
		t.Errorf("Error = %v, want ErrMissingCredentials", result.Error)
	}
}

func TestJWTAuthenticator_LeewayToleratesSkew(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{
		Leeway: 30 * time.Second,
		Clock:  func() time.Time { return testNow },
	}, NewStaticKeyProvider(testSecret))

	claims := jwt.MapClaims{"sub": "ops", "exp": testNow.Add(-10 * time.Second).Unix()}
	result, err := a.Authenticate(context.Background(), bearer(signToken(t, jwt.SigningMethodHS256, testSecret, claims)))
	if err != nil || !result.Authenticated {
		t.Fatalf("Authenticate() = %+v, %v", result, err)
	}
}
