package secret

import (
	"errors"
	"strings"
	"testing"
)

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("RESPCACHE_TEST_HOST", "cache.local")

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"${RESPCACHE_TEST_HOST}:8080", "cache.local:8080"},
		{"$RESPCACHE_TEST_HOST", "cache.local"},
		{"$$${RESPCACHE_TEST_HOST}", "$cache.local"},
		{"cost $$5", "cost $5"},
	}
	for _, tt := range tests {
		got, err := ExpandEnvStrict(tt.in)
		if err != nil {
			t.Fatalf("ExpandEnvStrict(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ExpandEnvStrict(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExpandEnvStrict_MissingVarErrors(t *testing.T) {
	t.Setenv("PRESENT", "ok")

	_, err := ExpandEnvStrict("a=${PRESENT} b=${MISSING_B} c=${MISSING_A} d=${MISSING_B}")
	if !errors.Is(err, ErrMissingEnv) {
		t.Fatalf("error = %v, want ErrMissingEnv", err)
	}
	if !strings.HasSuffix(err.Error(), "MISSING_A, MISSING_B") {
		t.Errorf("error = %q, want sorted unique names", err)
	}
}
