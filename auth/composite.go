package auth

import "context"

// CompositeAuthenticator tries authenticators in order and returns the
// first success, or the last failure when none succeed.
type CompositeAuthenticator struct {
	authenticators []Authenticator
}

// NewCompositeAuthenticator creates a composite authenticator. Nil
// entries are skipped so optional authenticators can be passed directly.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	kept := make([]Authenticator, 0, len(auths))
	for _, a := range auths {
		if a != nil {
			kept = append(kept, a)
		}
	}
	return &CompositeAuthenticator{authenticators: kept}
}

// Name returns "composite".
func (c *CompositeAuthenticator) Name() string {
	return "composite"
}

// Len returns the number of configured authenticators.
func (c *CompositeAuthenticator) Len() int {
	return len(c.authenticators)
}

// Supports returns true if any authenticator supports the request.
func (c *CompositeAuthenticator) Supports(ctx context.Context, req *AuthRequest) bool {
	for _, a := range c.authenticators {
		if a.Supports(ctx, req) {
			return true
		}
	}
	return false
}

// Authenticate tries each supporting authenticator in sequence.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	var last *AuthResult
	for _, a := range c.authenticators {
		if !a.Supports(ctx, req) {
			continue
		}
		result, err := a.Authenticate(ctx, req)
		if err != nil {
			return nil, err
		}
		if result.Authenticated {
			return result, nil
		}
		last = result
	}
	if last != nil {
		return last, nil
	}
	return AuthFailure(ErrMissingCredentials, ""), nil
}

var _ Authenticator = (*CompositeAuthenticator)(nil)
