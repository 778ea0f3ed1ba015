package demo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonwraymond/respcache/cache"
	"github.com/jonwraymond/respcache/server"
)

type harness struct {
	handler http.Handler
	pools   *cache.Pools
	mw      *cache.Middleware
	catalog *Catalog
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	pools := cache.NewPools(cache.DefaultPoolsConfig(), nil, nil)
	t.Cleanup(func() { _ = pools.Close() })

	mw, err := cache.NewMiddleware(cache.MiddlewareConfig{Store: pools.API})
	if err != nil {
		t.Fatal(err)
	}
	inv := cache.NewInvalidator(nil, pools.Caches()...)
	srv, err := server.New(server.Config{Pools: pools, Cache: mw, Invalidator: inv})
	if err != nil {
		t.Fatal(err)
	}

	catalog := NewCatalog()
	Register(srv, &Handlers{Catalog: catalog, Ledger: NewLedger(), Invalidator: inv})
	return &harness{handler: srv.Handler(), pools: pools, mw: mw, catalog: catalog}
}

func (h *harness) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func cacheStatus(rec *httptest.ResponseRecorder) string {
	return rec.Header().Get(cache.HeaderCache)
}

func TestDepositInvalidatesBalance(t *testing.T) {
	h := newHarness(t)

	if rec := h.do(http.MethodGet, "/users/0xABC/balance", ""); cacheStatus(rec) != "MISS" {
		t.Fatalf("first read X-Cache = %q", cacheStatus(rec))
	}
	if rec := h.do(http.MethodGet, "/users/0xABC/balance", ""); cacheStatus(rec) != "HIT" {
		t.Fatalf("second read X-Cache = %q", cacheStatus(rec))
	}

	if rec := h.do(http.MethodPost, "/users/0xabc/balance", `{"amount":500}`); rec.Code != http.StatusOK {
		t.Fatalf("deposit status = %d, body = %s", rec.Code, rec.Body)
	}

	rec := h.do(http.MethodGet, "/users/0xABC/balance", "")
	if cacheStatus(rec) != "MISS" {
		t.Errorf("read after deposit X-Cache = %q, want MISS", cacheStatus(rec))
	}
	var got balanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Balance != 500 {
		t.Errorf("Balance = %d, want 500", got.Balance)
	}
}

func TestDepositRejectsBadInput(t *testing.T) {
	h := newHarness(t)

	for _, body := range []string{`{"amount":0}`, `not json`} {
		if rec := h.do(http.MethodPost, "/users/0xabc/balance", body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %q status = %d, want 400", body, rec.Code)
		}
	}
}

func TestGameConfigRoutes(t *testing.T) {
	h := newHarness(t)

	if rec := h.do(http.MethodGet, "/games/roulette/config", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown game status = %d, want 404", rec.Code)
	}
	if h.pools.API.Len() != 0 {
		t.Error("404 response was stored")
	}

	h.do(http.MethodGet, "/games/slots/config", "")
	h.do(http.MethodGet, "/games/dice/config", "")

	rec := h.do(http.MethodPut, "/games/slots/config", `{"minBet":1,"maxBet":5,"rtp":0.9,"enabled":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = h.do(http.MethodGet, "/games/slots/config", "")
	if cacheStatus(rec) != "MISS" || !strings.Contains(rec.Body.String(), `"maxBet":5`) {
		t.Errorf("slots after update = %s %s", cacheStatus(rec), rec.Body)
	}
	if rec := h.do(http.MethodGet, "/games/dice/config", ""); cacheStatus(rec) != "HIT" {
		t.Errorf("dice after slots update X-Cache = %q, want HIT", cacheStatus(rec))
	}
}

func TestGameConfigWarmups(t *testing.T) {
	h := newHarness(t)

	jobs, err := GameConfigWarmups(h.catalog, cache.NewDefaultKeyGenerator(), h.mw.Codec())
	if err != nil {
		t.Fatalf("GameConfigWarmups() error = %v", err)
	}
	if len(jobs) != len(h.catalog.Types()) {
		t.Fatalf("jobs = %d, want %d", len(jobs), len(h.catalog.Types()))
	}

	warmer, err := cache.NewWarmer(h.pools.API, cache.WarmupConfig{})
	if err != nil {
		t.Fatal(err)
	}
	for _, job := range jobs {
		report, err := warmer.Warm(context.Background(), job)
		if err != nil || report.Err() != nil || report.Stored != 1 {
			t.Fatalf("Warm(%s) = %+v, %v", job.Name, report, err)
		}
	}

	warm := h.do(http.MethodGet, "/games/crash/config", "")
	if cacheStatus(warm) != "HIT" {
		t.Fatalf("warmed route X-Cache = %q, want HIT", cacheStatus(warm))
	}

	// Warmed bodies must equal what the handler renders.
	h.pools.API.Clear(context.Background())
	fresh := h.do(http.MethodGet, "/games/crash/config", "")
	if warm.Body.String() != fresh.Body.String() {
		t.Errorf("warmed body %q != handler body %q", warm.Body, fresh.Body)
	}

	// Per-type invalidation reaches warmed entries.
	for _, job := range jobs {
		_, _ = warmer.Warm(context.Background(), job)
	}
	h.do(http.MethodPut, "/games/dice/config", `{"maxBet":1}`)
	if rec := h.do(http.MethodGet, "/games/dice/config", ""); cacheStatus(rec) != "MISS" {
		t.Errorf("dice after update X-Cache = %q, want MISS", cacheStatus(rec))
	}
}

func TestGameTypeFromKey(t *testing.T) {
	if got := gameTypeFromKey("GET|/games/slots/config|"); got != "slots" {
		t.Errorf("gameTypeFromKey() = %q", got)
	}
}
