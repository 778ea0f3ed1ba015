package auth_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/jonwraymond/respcache/auth"
)

func ExampleNewAPIKeyAuthenticator() {
	store := auth.NewMemoryAPIKeyStore()
	store.Add(&auth.APIKeyInfo{
		ID:        "key-1",
		KeyHash:   auth.HashAPIKey("sk_live_abc123"),
		Principal: "ops@example.com",
		Roles:     []string{auth.RoleAdmin},
	})
	authenticator := auth.NewAPIKeyAuthenticator(store)

	req := &auth.AuthRequest{Header: http.Header{auth.HeaderAPIKey: {"sk_live_abc123"}}}
	result, err := authenticator.Authenticate(context.Background(), req)
	if err == nil && result.Authenticated {
		fmt.Println("Principal:", result.Identity.Principal)
		fmt.Println("Admin:", result.Identity.HasRole(auth.RoleAdmin))
	}
	// Output:
	// Principal: ops@example.com
	// Admin: true
}

func ExampleHashAPIKey() {
	hash := auth.HashAPIKey("sk_live_abc123")
	fmt.Println("Hash length:", len(hash))
	// Output:
	// Hash length: 64
}

func ExampleRequireRole() {
	store := auth.NewMemoryAPIKeyStore()
	store.Add(&auth.APIKeyInfo{ID: "viewer", KeyHash: auth.HashAPIKey("sk_view"), Principal: "viewer"})

	authn := auth.NewCompositeAuthenticator(
		auth.NewJWTAuthenticator(auth.JWTConfig{}, auth.NewStaticKeyProvider([]byte("secret"))),
		auth.NewAPIKeyAuthenticator(store),
	)
	clear := auth.RequireRole(authn, auth.RoleAdmin, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, key := range []string{"", "sk_view"} {
		req := httptest.NewRequest(http.MethodPost, "/admin/cache/clear", nil)
		if key != "" {
			req.Header.Set(auth.HeaderAPIKey, key)
		}
		rec := httptest.NewRecorder()
		clear.ServeHTTP(rec, req)
		fmt.Println(rec.Code)
	}
	// Output:
	// 401
	// 403
}
