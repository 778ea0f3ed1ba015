package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/respcache/auth"
	"github.com/jonwraymond/respcache/cache"
	"github.com/jonwraymond/respcache/health"
	"github.com/jonwraymond/respcache/observe"
)

// Config wires the server's collaborators.
type Config struct {
	// Addr is the listen address. Default: ":8080"
	Addr string

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration

	// Pools backs the admin metrics and clear routes. Required.
	Pools *cache.Pools

	// Cache wraps routes registered with HandleCached. Required.
	Cache *cache.Middleware

	// Invalidator serves the admin invalidation routes. Required.
	Invalidator *cache.Invalidator

	// Observe instruments every route. Default: no-op
	Observe *observe.Middleware

	// Authenticator guards the admin routes. Nil leaves them unmounted.
	Authenticator auth.Authenticator

	// Health serves /healthz, /readyz and /health. Optional.
	Health *health.Aggregator

	// Gatherer, when set, is served at GET /metrics.
	Gatherer prometheus.Gatherer

	Logger observe.Logger
}

// Server is the respcached HTTP server.
type Server struct {
	cfg    Config
	mux    *http.ServeMux
	logger observe.Logger
}

// New builds the mux and mounts the admin, health and metrics routes.
// Application routes are added with HandleCached and Handle.
func New(cfg Config) (*Server, error) {
	switch {
	case cfg.Pools == nil:
		return nil, ErrNilPools
	case cfg.Cache == nil:
		return nil, ErrNilMiddleware
	case cfg.Invalidator == nil:
		return nil, ErrNilInvalidator
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Observe == nil {
		cfg.Observe = observe.NewMiddleware(nil, nil, nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NewNopLogger()
	}

	s := &Server{cfg: cfg, mux: http.NewServeMux(), logger: cfg.Logger}

	if cfg.Authenticator != nil {
		s.mountAdmin()
	} else {
		s.logger.Warn(context.Background(), "admin routes disabled: no credentials configured")
	}
	if cfg.Health != nil {
		health.RegisterHandlers(s.mux, cfg.Health)
	}
	if cfg.Gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	return s, nil
}

// HandleCached registers a read route served through the api pool.
// pattern uses http.ServeMux syntax and should name the GET method.
func (s *Server) HandleCached(pattern string, h http.Handler, rc cache.RouteConfig) {
	meta := routeMeta(pattern, rc.Name, cache.PoolAPI)
	if rc.Name == "" {
		rc.Name = meta.RouteID()
	}
	s.mux.Handle(pattern, s.cfg.Observe.Wrap(s.cfg.Cache.Wrap(h, rc), meta))
}

// Handle registers an uncached route, instrumented like every other route.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, s.cfg.Observe.Wrap(h, routeMeta(pattern, "", "")))
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "listening", observe.Field{Key: "addr", Value: ln.Addr().String()})
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// routeMeta splits a "METHOD /path" pattern into route metadata.
func routeMeta(pattern, name, pool string) observe.RouteMeta {
	method, path, ok := strings.Cut(pattern, " ")
	if !ok {
		method, path = "", pattern
	}
	return observe.RouteMeta{
		Name:    name,
		Method:  method,
		Pattern: strings.TrimSpace(path),
		Pool:    pool,
	}
}
