package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type failingKeyStore struct{ err error }

func (s failingKeyStore) Lookup(context.Context, string) (*APIKeyInfo, error) {
	return nil, s.err
}

func apiKeyRequest(key string) *AuthRequest {
	h := http.Header{}
	if key != "" {
		h.Set(HeaderAPIKey, key)
	}
	return &AuthRequest{Header: h}
}

func TestAPIKeyAuthenticator_Valid(t *testing.T) {
	store := NewMemoryAPIKeyStore()
	store.Add(&APIKeyInfo{
		ID:        "key-1",
		KeyHash:   HashAPIKey("sk_admin"),
		Principal: "ops",
		Roles:     []string{RoleAdmin},
	})
	a := NewAPIKeyAuthenticator(store)

	if !a.Supports(context.Background(), apiKeyRequest("sk_admin")) {
		t.Fatal("Supports() = false")
	}

	result, err := a.Authenticate(context.Background(), apiKeyRequest("sk_admin"))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !result.Authenticated {
		t.Fatalf("Authenticated = false, error = %v", result.Error)
	}
	if result.Identity.Principal != "ops" || !result.Identity.HasRole(RoleAdmin) {
		t.Errorf("Identity = %+v", result.Identity)
	}
	if result.Identity.Method != AuthMethodAPIKey {
		t.Errorf("Method = %q", result.Identity.Method)
	}
	if result.Identity.Claims["key_id"] != "key-1" {
		t.Errorf("Claims = %v", result.Identity.Claims)
	}
}

func TestAPIKeyAuthenticator_HeaderForms(t *testing.T) {
	if got := http.CanonicalHeaderKey(HeaderAPIKey); got != HeaderAPIKey {
		t.Fatalf("HeaderAPIKey = %q, canonical form is %q", HeaderAPIKey, got)
	}

	store := NewMemoryAPIKeyStore()
	store.Add(&APIKeyInfo{ID: "key-1", KeyHash: HashAPIKey("sk_admin"), Principal: "ops"})
	a := NewAPIKeyAuthenticator(store)

	tests := []struct {
		name   string
		header http.Header
	}{
		{"literal map", http.Header{HeaderAPIKey: {"sk_admin"}}},
		{"set upper case", func() http.Header { h := http.Header{}; h.Set("X-API-KEY", "sk_admin"); return h }()},
		{"set lower case", func() http.Header { h := http.Header{}; h.Set("x-api-key", "sk_admin"); return h }()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := a.Authenticate(context.Background(), &AuthRequest{Header: tt.header})
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if !result.Authenticated {
				t.Errorf("Authenticated = false, error = %v", result.Error)
			}
		})
	}
}

func TestAPIKeyAuthenticator_Failures(t *testing.T) {
	store := NewMemoryAPIKeyStore()
	store.Add(&APIKeyInfo{
		ID:        "old",
		KeyHash:   HashAPIKey("sk_old"),
		Principal: "ops",
		ExpiresAt: testNow.Add(-time.Hour),
	})
	a := NewAPIKeyAuthenticator(store)
	a.now = func() time.Time { return testNow }

	tests := []struct {
		name string
		key  string
		want error
	}{
		{"missing", "", ErrMissingCredentials},
		{"unknown", "sk_nope", ErrInvalidCredentials},
		{"expired", "sk_old", ErrTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := a.Authenticate(context.Background(), apiKeyRequest(tt.key))
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if result.Authenticated || !errors.Is(result.Error, tt.want) {
				t.Errorf("result = %+v, want error %v", result, tt.want)
			}
		})
	}
}

func TestAPIKeyAuthenticator_StoreError(t *testing.T) {
	boom := errors.New("store down")
	a := NewAPIKeyAuthenticator(failingKeyStore{err: boom})

	_, err := a.Authenticate(context.Background(), apiKeyRequest("sk"))
	if !errors.Is(err, boom) {
		t.Errorf("Authenticate() error = %v, want %v", err, boom)
	}
}

func TestMemoryAPIKeyStore_Remove(t *testing.T) {
	store := NewMemoryAPIKeyStore()
	hash := HashAPIKey("sk")
	store.Add(&APIKeyInfo{ID: "k", KeyHash: hash})
	store.Remove(hash)

	info, err := store.Lookup(context.Background(), hash)
	if err != nil || info != nil {
		t.Errorf("Lookup() = %v, %v, want nil, nil", info, err)
	}
}

func TestHashAPIKey(t *testing.T) {
	if HashAPIKey("a") != HashAPIKey("a") {
		t.Error("hash is not deterministic")
	}
	if HashAPIKey("a") == HashAPIKey("b") {
		t.Error("distinct keys share a hash")
	}
	if got := len(HashAPIKey("a")); got != 64 {
		t.Errorf("len = %d, want 64", got)
	}
}
