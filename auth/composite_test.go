package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestCompositeAuthenticator(t *testing.T) {
	store := NewMemoryAPIKeyStore()
	store.Add(&APIKeyInfo{ID: "k", KeyHash: HashAPIKey("sk_admin"), Principal: "key-ops", Roles: []string{RoleAdmin}})

	c := NewCompositeAuthenticator(newTestJWT(), nil, NewAPIKeyAuthenticator(store))
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (nil skipped)", c.Len())
	}

	t.Run("api key", func(t *testing.T) {
		result, err := c.Authenticate(context.Background(), apiKeyRequest("sk_admin"))
		if err != nil || !result.Authenticated {
			t.Fatalf("Authenticate() = %+v, %v", result, err)
		}
		if result.Identity.Principal != "key-ops" {
			t.Errorf("Principal = %q", result.Identity.Principal)
		}
	})

	t.Run("jwt", func(t *testing.T) {
		req := bearer(signToken(t, jwt.SigningMethodHS256, testSecret, validClaims()))
		result, err := c.Authenticate(context.Background(), req)
		if err != nil || !result.Authenticated {
			t.Fatalf("Authenticate() = %+v, %v", result, err)
		}
		if result.Method != string(AuthMethodJWT) {
			t.Errorf("Method = %q", result.Method)
		}
	})

	t.Run("bad jwt falls through to last failure", func(t *testing.T) {
		result, err := c.Authenticate(context.Background(), bearer("garbage"))
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if result.Authenticated || !errors.Is(result.Error, ErrTokenMalformed) {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("no credentials", func(t *testing.T) {
		req := &AuthRequest{Header: http.Header{}}
		if c.Supports(context.Background(), req) {
			t.Error("Supports() = true")
		}
		result, err := c.Authenticate(context.Background(), req)
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if !errors.Is(result.Error, ErrMissingCredentials) {
			t.Errorf("Error = %v", result.Error)
		}
	})
}
