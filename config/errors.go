package config

import "errors"

var (
	ErrMissingAddr        = errors.New("config: listen address is required")
	ErrInvalidCodec       = errors.New("config: invalid cache codec")
	ErrInvalidCapacity    = errors.New("config: pool capacity must be >= 0")
	ErrInvalidTTL         = errors.New("config: default TTL exceeds max TTL")
	ErrInvalidThreshold   = errors.New("config: capacity threshold must be in (0, 1]")
	ErrInvalidConcurrency = errors.New("config: warmup concurrency must be > 0")
	ErrWeakJWTSecret      = errors.New("config: JWT secret must be at least 32 bytes")
)
