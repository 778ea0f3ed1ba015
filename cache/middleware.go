package cache

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/jonwraymond/respcache/observe"
)

// Diagnostic response headers set on every cache-eligible request.
const (
	HeaderCache    = "X-Cache"
	HeaderCacheKey = "X-Cache-Key"
)

// DefaultMaxBodyBytes is the largest response body the middleware stores.
const DefaultMaxBodyBytes = 1 << 20

// hopHeaders are never stored or replayed.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Connection",
	"Transfer-Encoding",
	"Upgrade",
	"Te",
	"Trailer",
	HeaderCache,
	HeaderCacheKey,
}

// RouteConfig configures caching for one wrapped handler.
type RouteConfig struct {
	// Name labels the route in logs. Optional.
	Name string

	// TTL for stored responses. <= 0 selects the store default.
	TTL time.Duration

	// Tags attached to every stored response.
	Tags []string

	// TagsFunc derives extra tags from the request (a user or game type
	// taken from the path, for example). Optional.
	TagsFunc func(r *http.Request) []string

	// Key, when set and non-empty for a request, replaces key derivation.
	Key func(r *http.Request) string

	// Vary lists request headers whose values become part of the key.
	Vary []string
}

// MiddlewareConfig configures a Middleware.
type MiddlewareConfig struct {
	// Store holds cached responses. Required.
	Store *Store

	// Keys derives cache keys. Default: DefaultKeyGenerator
	Keys KeyGenerator

	// Codec encodes stored responses. Default: MsgpackCodec
	Codec Codec

	// MaxBodyBytes bounds stored bodies; larger responses are served but not
	// stored. Default: DefaultMaxBodyBytes
	MaxBodyBytes int

	Hooks  Hooks
	Logger observe.Logger
}

// Middleware serves repeated GET requests from a Store.
//
// Contract:
//   - Only GET is eligible; other methods reach the handler untouched.
//   - Only 2xx responses are stored.
//   - Cache faults are logged and the handler runs as if no cache existed.
//   - Concurrent misses for one key each run the handler; the last write wins.
//   - A miss whose tags are invalidated while its handler runs is served but
//     not stored, so a read racing a write never caches the stale value.
type Middleware struct {
	store   *Store
	keys    KeyGenerator
	codec   Codec
	maxBody int
	hooks   Hooks
	logger  observe.Logger
}

// NewMiddleware creates a cache middleware.
func NewMiddleware(cfg MiddlewareConfig) (*Middleware, error) {
	if cfg.Store == nil {
		return nil, ErrNilStore
	}
	if cfg.Keys == nil {
		cfg.Keys = NewDefaultKeyGenerator()
	}
	if cfg.Codec == nil {
		cfg.Codec = MsgpackCodec{}
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Hooks == nil {
		cfg.Hooks = NopHooks{}
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NewNopLogger()
	}
	return &Middleware{
		store:   cfg.Store,
		keys:    cfg.Keys,
		codec:   cfg.Codec,
		maxBody: cfg.MaxBodyBytes,
		hooks:   cfg.Hooks,
		logger:  cfg.Logger,
	}, nil
}

// Codec returns the codec used for stored responses.
func (m *Middleware) Codec() Codec {
	return m.codec
}

// Wrap returns next wrapped with caching per cfg.
func (m *Middleware) Wrap(next http.Handler, cfg RouteConfig) http.Handler {
	logger := m.logger.WithRoute(observe.RouteMeta{Name: cfg.Name, Method: http.MethodGet})
	pool := m.store.Name()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key, err := m.keyFor(r, cfg)
		if err != nil {
			logger.Warn(ctx, "cache key derivation failed",
				observe.Field{Key: "path", Value: r.URL.Path},
				observe.Field{Key: "error", Value: err.Error()},
			)
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		raw, ok := m.store.Get(ctx, key)
		if ok {
			resp, err := m.codec.Decode(raw)
			m.hooks.Lookup(pool, time.Since(start))
			if err == nil {
				replay(w, key, resp)
				return
			}
			logger.Warn(ctx, "cache entry dropped",
				observe.Field{Key: "key", Value: key},
				observe.Field{Key: "error", Value: err.Error()},
			)
			m.store.Delete(ctx, key)
			m.hooks.Evicted(pool, "corrupt")
		} else {
			m.hooks.Lookup(pool, time.Since(start))
		}

		h := w.Header()
		h.Set(HeaderCache, "MISS")
		h.Set(HeaderCacheKey, key)

		tags := tagsFor(r, cfg)
		gen := m.store.TagGeneration(tags)

		rec := &recorder{ResponseWriter: w, limit: m.maxBody}
		next.ServeHTTP(rec, r)

		if !rec.storable() {
			return
		}
		data, err := m.codec.Encode(rec.response())
		if err != nil {
			logger.Warn(ctx, "cache encode failed",
				observe.Field{Key: "key", Value: key},
				observe.Field{Key: "error", Value: err.Error()},
			)
			return
		}
		if !m.store.SetWithTagsIfCurrent(ctx, key, data, tags, cfg.TTL, gen) {
			logger.Debug(ctx, "cache store skipped: invalidated while serving",
				observe.Field{Key: "key", Value: key},
			)
		}
	})
}

func (m *Middleware) keyFor(r *http.Request, cfg RouteConfig) (string, error) {
	override := ""
	if cfg.Key != nil {
		override = cfg.Key(r)
	}
	return m.keys.Key(KeyRequestFromHTTP(r, cfg.Vary, override))
}

func tagsFor(r *http.Request, cfg RouteConfig) []string {
	if cfg.TagsFunc == nil {
		return cfg.Tags
	}
	extra := cfg.TagsFunc(r)
	tags := make([]string, 0, len(cfg.Tags)+len(extra))
	tags = append(tags, cfg.Tags...)
	return append(tags, extra...)
}

func replay(w http.ResponseWriter, key string, resp Response) {
	h := w.Header()
	for name, values := range resp.Header {
		h[name] = append([]string(nil), values...)
	}
	h.Set(HeaderCache, "HIT")
	h.Set(HeaderCacheKey, key)
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// recorder tees a handler response to the client while capturing it.
type recorder struct {
	http.ResponseWriter

	status   int
	header   http.Header // snapshot taken at WriteHeader
	body     bytes.Buffer
	limit    int
	overflow bool
}

func (rec *recorder) WriteHeader(code int) {
	if rec.status != 0 {
		return
	}
	rec.status = code
	rec.header = rec.ResponseWriter.Header().Clone()
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *recorder) Write(p []byte) (int, error) {
	if rec.status == 0 {
		rec.WriteHeader(http.StatusOK)
	}
	if !rec.overflow {
		if rec.body.Len()+len(p) > rec.limit {
			rec.overflow = true
			rec.body.Reset()
		} else {
			rec.body.Write(p)
		}
	}
	return rec.ResponseWriter.Write(p)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rec *recorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

func (rec *recorder) storable() bool {
	status := rec.status
	if status == 0 {
		status = http.StatusOK
	}
	if status < 200 || status > 299 || rec.overflow {
		return false
	}
	cc := rec.header.Get("Cache-Control")
	if rec.header == nil {
		cc = rec.ResponseWriter.Header().Get("Cache-Control")
	}
	return !strings.Contains(strings.ToLower(cc), "no-store")
}

func (rec *recorder) response() Response {
	status := rec.status
	header := rec.header
	if status == 0 {
		status = http.StatusOK
		header = rec.ResponseWriter.Header().Clone()
	}
	for _, name := range hopHeaders {
		header.Del(name)
	}
	return Response{
		Status:     status,
		StatusText: http.StatusText(status),
		Header:     header,
		Body:       bytes.Clone(rec.body.Bytes()),
	}
}
