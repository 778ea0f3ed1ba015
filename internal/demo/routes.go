package demo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jonwraymond/respcache/cache"
	"github.com/jonwraymond/respcache/observe"
)

// Route TTLs.
const (
	GameConfigTTL = 5 * time.Minute
	BalanceTTL    = 2 * time.Second
)

// Router is the part of the server the demo routes register with.
type Router interface {
	HandleCached(pattern string, h http.Handler, rc cache.RouteConfig)
	Handle(pattern string, h http.Handler)
}

// Handlers serves the demo routes.
type Handlers struct {
	Catalog     *Catalog
	Ledger      *Ledger
	Invalidator *cache.Invalidator
	Logger      observe.Logger
}

type balanceResponse struct {
	User    string `json:"user"`
	Balance int64  `json:"balance"`
}

type depositRequest struct {
	Amount int64 `json:"amount"`
}

// Register mounts the demo routes.
func Register(r Router, h *Handlers) {
	if h.Logger == nil {
		h.Logger = observe.NewNopLogger()
	}

	r.HandleCached("GET /games/{type}/config", http.HandlerFunc(h.gameConfig), cache.RouteConfig{
		Name: "game-config",
		TTL:  GameConfigTTL,
		TagsFunc: func(r *http.Request) []string {
			return cache.GameTags(r.PathValue("type"))
		},
	})
	r.HandleCached("GET /users/{id}/balance", http.HandlerFunc(h.balance), cache.RouteConfig{
		Name: "user-balance",
		TTL:  BalanceTTL,
		TagsFunc: func(r *http.Request) []string {
			return []string{cache.UserTag(r.PathValue("id"))}
		},
	})
	r.Handle("POST /users/{id}/balance", http.HandlerFunc(h.deposit))
	r.Handle("PUT /games/{type}/config", http.HandlerFunc(h.updateGame))
}

func (h *Handlers) gameConfig(w http.ResponseWriter, r *http.Request) {
	g, err := h.Catalog.Get(r.PathValue("type"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handlers) balance(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("id")
	writeJSON(w, http.StatusOK, balanceResponse{User: user, Balance: h.Ledger.Balance(user)})
}

// deposit credits a balance, then drops every cached response for the user
// so the next read sees the new amount.
func (h *Handlers) deposit(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("id")

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	bal, err := h.Ledger.Deposit(user, req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	removed := h.Invalidator.InvalidateUser(r.Context(), user)
	h.Logger.Debug(r.Context(), "balance updated",
		observe.Field{Key: "user", Value: user},
		observe.Field{Key: "invalidated", Value: removed},
	)
	writeJSON(w, http.StatusOK, balanceResponse{User: user, Balance: bal})
}

func (h *Handlers) updateGame(w http.ResponseWriter, r *http.Request) {
	gameType := r.PathValue("type")
	if _, err := h.Catalog.Get(gameType); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var g GameConfig
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	g.Type = gameType
	h.Catalog.Put(g)
	h.Invalidator.InvalidateGame(r.Context(), gameType)
	writeJSON(w, http.StatusOK, g)
}

// GameConfigWarmups returns one job per catalog entry that pre-populates
// the game-config route. Keys and tags match what the cache middleware
// derives for GET /games/{type}/config, so per-type invalidation reaches
// warmed entries too.
func GameConfigWarmups(c *Catalog, keys cache.KeyGenerator, codec cache.Codec) ([]cache.WarmupJob, error) {
	producer := cache.ResponseProducer(codec, func(_ context.Context, key string) (cache.Response, error) {
		g, err := c.Get(gameTypeFromKey(key))
		if err != nil {
			return cache.Response{}, err
		}
		body, err := json.Marshal(g)
		if err != nil {
			return cache.Response{}, err
		}
		return cache.Response{
			Status: http.StatusOK,
			Header: http.Header{"Content-Type": {"application/json"}},
			Body:   append(body, '\n'),
		}, nil
	})

	types := c.Types()
	jobs := make([]cache.WarmupJob, 0, len(types))
	for _, t := range types {
		key, err := keys.Key(cache.KeyRequest{Method: http.MethodGet, Path: gameConfigPath(t)})
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, cache.WarmupJob{
			Name:     "game-config:" + t,
			Keys:     []string{key},
			Producer: producer,
			TTL:      GameConfigTTL,
			Tags:     cache.GameTags(t),
		})
	}
	return jobs, nil
}

func gameConfigPath(gameType string) string {
	return "/games/" + gameType + "/config"
}

// gameTypeFromKey extracts the type from a "GET|/games/<type>/config|" key.
func gameTypeFromKey(key string) string {
	_, rest, _ := strings.Cut(key, "/games/")
	t, _, _ := strings.Cut(rest, "/")
	return t
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		err = errors.New("demo: malformed JSON body")
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
