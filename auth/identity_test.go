package auth

import (
	"context"
	"testing"
	"time"
)

func TestIdentity_HasRole(t *testing.T) {
	id := &Identity{Principal: "ops", Roles: []string{"viewer", RoleAdmin}}

	if !id.HasRole(RoleAdmin) {
		t.Error("HasRole(admin) = false, want true")
	}
	if id.HasRole("owner") {
		t.Error("HasRole(owner) = true, want false")
	}
	if (&Identity{}).HasRole(RoleAdmin) {
		t.Error("identity without roles has admin")
	}
}

func TestIdentity_IsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"never", time.Time{}, false},
		{"future", now.Add(time.Minute), false},
		{"past", now.Add(-time.Minute), true},
		{"exactly now", now, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := &Identity{ExpiresAt: tt.expiresAt}
			if got := id.IsExpired(now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if IdentityFromContext(ctx) != nil {
		t.Fatal("empty context has identity")
	}
	if PrincipalFromContext(ctx) != "" {
		t.Fatal("empty context has principal")
	}

	id := &Identity{Principal: "ops@example.com"}
	ctx = WithIdentity(ctx, id)
	if got := IdentityFromContext(ctx); got != id {
		t.Errorf("IdentityFromContext() = %v, want %v", got, id)
	}
	if got := PrincipalFromContext(ctx); got != "ops@example.com" {
		t.Errorf("PrincipalFromContext() = %q", got)
	}
}
