package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// keySeparator joins the parts of the key material.
const keySeparator = "|"

// keyPartEscaper percent-encodes the bytes that delimit key material, so no
// part can forge a separator. "%" is encoded too, which keeps the mapping
// injective.
var keyPartEscaper = strings.NewReplacer("%", "%25", "|", "%7C", ",", "%2C")

// KeyRequest describes the parts of a read request that identify its response.
type KeyRequest struct {
	Method string

	// Path is the escaped request path, as returned by url.URL.EscapedPath.
	Path     string
	RawQuery string
	Header   http.Header

	// Vary lists header names whose values become part of the key, in the
	// order given. Reordering the list changes the key.
	Vary []string

	// Override, when non-empty, is used as the key verbatim.
	Override string
}

// KeyRequestFromHTTP builds a KeyRequest from an inbound request.
func KeyRequestFromHTTP(r *http.Request, vary []string, override string) KeyRequest {
	return KeyRequest{
		Method:   r.Method,
		Path:     r.URL.EscapedPath(),
		RawQuery: r.URL.RawQuery,
		Header:   r.Header,
		Vary:     vary,
		Override: override,
	}
}

// KeyGenerator derives cache keys from request descriptors.
//
// Contract:
// - Determinism: identical requests produce identical keys.
// - Distinctness: requests differing in method, path, query or a varied
//   header value produce different keys.
// - Concurrency: implementations must be safe for concurrent use.
type KeyGenerator interface {
	Key(req KeyRequest) (string, error)
}

// DefaultKeyGenerator joins method, path, query and varied headers with "|"
// and replaces material longer than MaxKeyLength with its hex SHA-256 digest.
// "%", "|" and "," inside a part are percent-encoded, so two requests can
// only share a key when every part matches.
type DefaultKeyGenerator struct{}

// NewDefaultKeyGenerator creates a new default key generator.
func NewDefaultKeyGenerator() *DefaultKeyGenerator {
	return &DefaultKeyGenerator{}
}

// Key generates the cache key for req.
// Format: METHOD|/path|query[|name:value...], or 64 hex chars when too long.
func (g *DefaultKeyGenerator) Key(req KeyRequest) (string, error) {
	if req.Override != "" {
		if err := ValidateKey(req.Override); err != nil {
			return "", err
		}
		return req.Override, nil
	}

	parts := make([]string, 0, 3+len(req.Vary))
	parts = append(parts,
		keyPartEscaper.Replace(req.Method),
		keyPartEscaper.Replace(req.Path),
		keyPartEscaper.Replace(req.RawQuery),
	)
	for _, name := range req.Vary {
		values := req.Header.Values(name)
		if len(values) == 0 {
			continue
		}
		escaped := make([]string, len(values))
		for i, v := range values {
			escaped[i] = keyPartEscaper.Replace(v)
		}
		parts = append(parts, keyPartEscaper.Replace(name)+":"+strings.Join(escaped, ","))
	}

	return boundKey(strings.Join(parts, keySeparator)), nil
}

// boundKey returns material unchanged when it fits, its digest otherwise.
func boundKey(material string) string {
	if len(material) <= MaxKeyLength {
		return material
	}
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}

// Ensure DefaultKeyGenerator implements KeyGenerator
var _ KeyGenerator = (*DefaultKeyGenerator)(nil)
