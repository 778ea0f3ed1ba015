package secret

import "errors"

var (
	// ErrMissingEnv is returned when ${VAR} names an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variable")

	// ErrUnknownProvider is returned for a secretref naming no provider.
	ErrUnknownProvider = errors.New("secret: provider not registered")

	// ErrEmptySecret is returned by a strict resolver when a provider
	// resolves to "".
	ErrEmptySecret = errors.New("secret: empty value")
)
