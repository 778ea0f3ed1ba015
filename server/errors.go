package server

import "errors"

var (
	ErrNilPools       = errors.New("server: pools are nil")
	ErrNilMiddleware  = errors.New("server: cache middleware is nil")
	ErrNilInvalidator = errors.New("server: invalidator is nil")
	ErrMissingTag     = errors.New("server: tag query parameter is required")
)
