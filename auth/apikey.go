package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// HeaderAPIKey carries an operator API key. It is kept in canonical form so
// it can key an http.Header literal.
const HeaderAPIKey = "X-Api-Key"

// APIKeyInfo describes a registered API key. Only the key's hash is kept.
type APIKeyInfo struct {
	ID        string
	KeyHash   string // hex SHA-256 of the key, see HashAPIKey
	Principal string
	Roles     []string
	ExpiresAt time.Time // zero = never
}

// APIKeyStore looks keys up by hash.
type APIKeyStore interface {
	// Lookup returns nil, nil when no key has the hash.
	Lookup(ctx context.Context, keyHash string) (*APIKeyInfo, error)
}

// APIKeyAuthenticator validates the X-Api-Key header.
type APIKeyAuthenticator struct {
	store APIKeyStore
	now   func() time.Time
}

// NewAPIKeyAuthenticator creates a new API key authenticator.
func NewAPIKeyAuthenticator(store APIKeyStore) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{store: store, now: time.Now}
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string {
	return "api_key"
}

// Supports returns true if the request contains an API key header.
func (a *APIKeyAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	return req.GetHeader(HeaderAPIKey) != ""
}

// Authenticate validates the API key.
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	key := strings.TrimSpace(req.GetHeader(HeaderAPIKey))
	if key == "" {
		return AuthFailure(ErrMissingCredentials, a.Name()), nil
	}

	info, err := a.store.Lookup(ctx, HashAPIKey(key))
	if err != nil {
		return nil, err
	}
	if info == nil {
		return AuthFailure(ErrInvalidCredentials, a.Name()), nil
	}

	id := &Identity{
		Principal: info.Principal,
		Roles:     info.Roles,
		Method:    AuthMethodAPIKey,
		ExpiresAt: info.ExpiresAt,
		Claims:    map[string]any{"key_id": info.ID},
	}
	if id.IsExpired(a.now()) {
		return AuthFailure(ErrTokenExpired, a.Name()), nil
	}
	return AuthSuccess(id), nil
}

// HashAPIKey hashes an API key using SHA-256 for storage.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// MemoryAPIKeyStore is an in-memory API key store.
type MemoryAPIKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*APIKeyInfo // keyed by hash
}

// NewMemoryAPIKeyStore creates a new in-memory API key store.
func NewMemoryAPIKeyStore() *MemoryAPIKeyStore {
	return &MemoryAPIKeyStore{keys: make(map[string]*APIKeyInfo)}
}

// Lookup retrieves an API key by its hash.
func (s *MemoryAPIKeyStore) Lookup(_ context.Context, keyHash string) (*APIKeyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[keyHash], nil
}

// Add registers info under its KeyHash.
func (s *MemoryAPIKeyStore) Add(info *APIKeyInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[info.KeyHash] = info
}

// Remove drops the key with keyHash.
func (s *MemoryAPIKeyStore) Remove(keyHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, keyHash)
}

var (
	_ Authenticator = (*APIKeyAuthenticator)(nil)
	_ APIKeyStore   = (*MemoryAPIKeyStore)(nil)
)
