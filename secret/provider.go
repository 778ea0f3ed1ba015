package secret

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// FileProvider reads secrets from files, such as mounted container secrets.
// The reference is a path, relative paths are joined to Dir.
// Trailing newlines are trimmed.
type FileProvider struct {
	Dir string
}

// Name returns "file".
func (FileProvider) Name() string { return "file" }

// Resolve reads the file named by ref.
func (p FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	path := ref
	if !filepath.IsAbs(path) && p.Dir != "" {
		path = filepath.Join(p.Dir, path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("secret: read %s: %w", path, err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

// EnvProvider resolves a reference as an environment variable name.
type EnvProvider struct{}

// Name returns "env".
func (EnvProvider) Name() string { return "env" }

// Resolve looks ref up in the environment.
func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, ref)
	}
	return v, nil
}

var (
	_ Provider = FileProvider{}
	_ Provider = EnvProvider{}
)
