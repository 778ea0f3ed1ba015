package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonwraymond/respcache/auth"
	"github.com/jonwraymond/respcache/observe"
)

// Admin route patterns.
const (
	RouteInvalidateTag   = "POST /admin/cache/invalidate"
	RouteInvalidateUser  = "POST /admin/cache/users/{id}/invalidate"
	RouteInvalidateGame  = "POST /admin/cache/games/{type}/invalidate"
	RouteInvalidateGames = "POST /admin/cache/games/invalidate"
	RouteClear           = "POST /admin/cache/clear"
	RouteMetrics         = "GET /admin/cache/metrics"
)

type invalidatedResponse struct {
	Invalidated int `json:"invalidated"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) mountAdmin() {
	guard := auth.RequireRole(s.cfg.Authenticator, auth.RoleAdmin, s.logger)
	admin := func(pattern string, h http.HandlerFunc) {
		meta := routeMeta(pattern, "", "")
		s.mux.Handle(pattern, s.cfg.Observe.Wrap(guard(h), meta))
	}

	admin(RouteInvalidateTag, s.invalidateTag)
	admin(RouteInvalidateUser, s.invalidateUser)
	admin(RouteInvalidateGame, s.invalidateGame)
	admin(RouteInvalidateGames, s.invalidateGame)
	admin(RouteClear, s.clear)
	admin(RouteMetrics, s.metrics)
}

func (s *Server) invalidateTag(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ErrMissingTag.Error()})
		return
	}
	n := s.cfg.Invalidator.InvalidateByTag(r.Context(), tag)
	s.audit(r, "tag", tag, n)
	writeJSON(w, http.StatusOK, invalidatedResponse{Invalidated: n})
}

func (s *Server) invalidateUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	n := s.cfg.Invalidator.InvalidateUser(r.Context(), id)
	s.audit(r, "user", id, n)
	writeJSON(w, http.StatusOK, invalidatedResponse{Invalidated: n})
}

// invalidateGame serves both the per-type and the all-games route; the
// latter has no {type} wildcard.
func (s *Server) invalidateGame(w http.ResponseWriter, r *http.Request) {
	gameType := r.PathValue("type")
	n := s.cfg.Invalidator.InvalidateGame(r.Context(), gameType)
	s.audit(r, "game", gameType, n)
	writeJSON(w, http.StatusOK, invalidatedResponse{Invalidated: n})
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	n := s.cfg.Invalidator.ClearAll(r.Context())
	s.audit(r, "all", "", n)
	writeJSON(w, http.StatusOK, invalidatedResponse{Invalidated: n})
}

func (s *Server) metrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Pools.Metrics())
}

func (s *Server) audit(r *http.Request, scope, target string, removed int) {
	s.logger.Info(r.Context(), "admin invalidation",
		observe.Field{Key: "principal", Value: auth.PrincipalFromContext(r.Context())},
		observe.Field{Key: "scope", Value: scope},
		observe.Field{Key: "target", Value: target},
		observe.Field{Key: "removed", Value: removed},
	)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
