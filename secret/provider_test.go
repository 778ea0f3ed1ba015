package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "jwt"), []byte("s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	p := FileProvider{Dir: dir}
	got, err := p.Resolve(context.Background(), "jwt")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "s3cret" {
		t.Errorf("Resolve() = %q, want trailing newline trimmed", got)
	}

	abs, err := FileProvider{Dir: "/nowhere"}.Resolve(context.Background(), filepath.Join(dir, "jwt"))
	if err != nil || abs != "s3cret" {
		t.Errorf("absolute Resolve() = %q, %v", abs, err)
	}

	if _, err := p.Resolve(context.Background(), "missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want ErrNotExist", err)
	}
}

func TestEnvProvider(t *testing.T) {
	t.Setenv("RESPCACHE_TEST_KEY", "sk_admin")

	got, err := EnvProvider{}.Resolve(context.Background(), "RESPCACHE_TEST_KEY")
	if err != nil || got != "sk_admin" {
		t.Errorf("Resolve() = %q, %v", got, err)
	}
	if _, err := (EnvProvider{}).Resolve(context.Background(), "RESPCACHE_TEST_UNSET"); !errors.Is(err, ErrMissingEnv) {
		t.Errorf("unset error = %v, want ErrMissingEnv", err)
	}
}

func TestResolver_FileSecretInline(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "token"), []byte("abc"), 0o600); err != nil {
		t.Fatal(err)
	}
	r := NewResolver(true, FileProvider{Dir: dir}, EnvProvider{})

	got, err := r.ResolveValue(context.Background(), "Bearer secretref:file:token")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "Bearer abc" {
		t.Errorf("ResolveValue() = %q", got)
	}
}
