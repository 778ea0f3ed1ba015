package secret

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Resolver resolves secret references in configuration values.
//
// A value is first expanded with ExpandEnvStrict. A value that is exactly
// "secretref:<provider>:<ref>" is replaced by the provider's answer, and
// references embedded in a longer value ("Bearer secretref:file:jwt") are
// replaced in place.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{
		providers: make(map[string]Provider),
		strict:    strict,
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		r.providers[p.Name()] = p
	}
	return r
}

// Register registers a provider with the resolver.
func (r *Resolver) Register(provider Provider) {
	if r == nil || provider == nil {
		return
	}
	if r.providers == nil {
		r.providers = make(map[string]Provider)
	}
	r.providers[provider.Name()] = provider
}

// ResolveValue resolves environment variables and secret refs in value.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if r == nil {
		return expanded, nil
	}

	if providerName, ref, ok := ParseSecretRef(expanded); ok {
		return r.resolveSingle(ctx, providerName, ref)
	}
	return r.resolveInline(ctx, expanded)
}

// ResolveSlice resolves each value in values.
func (r *Resolver) ResolveSlice(ctx context.Context, values []string) ([]string, error) {
	resolved := make([]string, len(values))
	for i, v := range values {
		out, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, err
		}
		resolved[i] = out
	}
	return resolved, nil
}

// ParseSecretRef parses a full secret reference of the form:
//
//	secretref:<provider>:<ref>
func ParseSecretRef(value string) (provider string, ref string, ok bool) {
	const prefix = "secretref:"
	if !strings.HasPrefix(value, prefix) {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(value, prefix), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (r *Resolver) resolveSingle(ctx context.Context, providerName string, ref string) (string, error) {
	if strings.TrimSpace(providerName) == "" {
		return "", fmt.Errorf("%w: empty name", ErrUnknownProvider)
	}
	provider, ok := r.providers[providerName]
	if !ok || provider == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, providerName)
	}
	resolved, err := provider.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && resolved == "" {
		return "", fmt.Errorf("%w: %s:%s", ErrEmptySecret, providerName, ref)
	}
	return resolved, nil
}

var inlineSecretRefPattern = regexp.MustCompile(`secretref:([^:\s]+):([^\s]+)`) // provider:ref

func (r *Resolver) resolveInline(ctx context.Context, value string) (string, error) {
	matches := inlineSecretRefPattern.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return value, nil
	}

	out := value
	for i := len(matches) - 1; i >= 0; i-- {
		match := matches[i]

		// Replacing from the end keeps earlier indexes valid.
		providerName := out[match[2]:match[3]]
		ref := out[match[4]:match[5]]

		resolved, err := r.resolveSingle(ctx, providerName, ref)
		if err != nil {
			return "", err
		}

		out = out[:match[0]] + resolved + out[match[1]:]
	}
	return out, nil
}
