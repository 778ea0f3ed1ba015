package cache

import "errors"

// Sentinel errors for cache operations.
var (
	ErrNilStore     = errors.New("cache: store is nil")
	ErrInvalidKey   = errors.New("cache: key is invalid")
	ErrCorruptEntry = errors.New("cache: corrupt entry")
	ErrNilProducer  = errors.New("cache: producer is nil")
	ErrUnknownCodec = errors.New("cache: unknown codec")

	// ErrSharedBreaker is returned when a warmup executor carries a circuit
	// breaker that every key would share.
	ErrSharedBreaker = errors.New("cache: warmup executor must not carry a circuit breaker")
)
