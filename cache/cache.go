package cache

import (
	"context"
	"strings"
	"time"
)

// MaxKeyLength is the longest raw cache key kept verbatim. Longer keys are
// replaced by the hex SHA-256 digest of the key material.
const MaxKeyLength = 200

// Cache is the read/write surface shared by the store and anything that
// decorates it.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get never errors; it returns (nil, false) on miss or expiry.
// - Ownership: returned values are copies; callers may mutate them freely.
type Cache interface {
	// Get retrieves a cached value. Returns (nil, false) on miss.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value. ttl <= 0 selects the store's default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// SetWithTags stores a value and indexes it under every tag.
	SetWithTags(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration)

	// Delete removes a value. Reports whether the key was present.
	Delete(ctx context.Context, key string) bool

	// InvalidateByTag removes every key carrying tag and returns the count.
	InvalidateByTag(ctx context.Context, tag string) int

	// Clear removes every entry and returns how many were removed.
	Clear(ctx context.Context) int
}

// ValidateKey checks if an explicit key is usable verbatim.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	// Reject keys with newlines or carriage returns; they end up in headers.
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
