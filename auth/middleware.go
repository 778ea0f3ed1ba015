package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jonwraymond/respcache/observe"
)

// RequireRole is HTTP middleware that authenticates the request with authn
// and admits only identities holding role. The identity is attached to the
// request context for downstream handlers.
//
// Missing or bad credentials answer 401, a missing role 403 and an
// authenticator fault 500. Bodies are JSON {"error": "..."}.
func RequireRole(authn Authenticator, role string, logger observe.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NewNopLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			req := &AuthRequest{Header: r.Header}

			if !authn.Supports(ctx, req) {
				deny(w, http.StatusUnauthorized, ErrMissingCredentials)
				return
			}

			result, err := authn.Authenticate(ctx, req)
			if err != nil {
				logger.Error(ctx, "authentication failed", observe.Field{Key: "error", Value: err})
				deny(w, http.StatusInternalServerError, errors.New("auth: internal error"))
				return
			}
			if !result.Authenticated {
				logger.Warn(ctx, "credentials rejected",
					observe.Field{Key: "method", Value: result.Method},
					observe.Field{Key: "error", Value: result.Error},
				)
				deny(w, http.StatusUnauthorized, result.Error)
				return
			}

			id := result.Identity
			if !id.HasRole(role) {
				logger.Warn(ctx, "role missing",
					observe.Field{Key: "principal", Value: id.Principal},
					observe.Field{Key: "role", Value: role},
				)
				deny(w, http.StatusForbidden, ErrForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, id)))
		})
	}
}

func deny(w http.ResponseWriter, code int, err error) {
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="respcache"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
