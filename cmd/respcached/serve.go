package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/respcache/auth"
	"github.com/jonwraymond/respcache/cache"
	"github.com/jonwraymond/respcache/config"
	"github.com/jonwraymond/respcache/health"
	"github.com/jonwraymond/respcache/internal/demo"
	"github.com/jonwraymond/respcache/observe"
	"github.com/jonwraymond/respcache/resilience"
	"github.com/jonwraymond/respcache/server"
)

// serve wires config, telemetry, pools, invalidator, warmer and server, and
// blocks until ctx is cancelled.
func serve(ctx context.Context, cfg config.Config, logOut io.Writer) error {
	obsCfg := cfg.Observe()
	obsCfg.Logging.Output = logOut

	var gatherer prometheus.Gatherer
	if obsCfg.Metrics.Enabled && obsCfg.Metrics.Exporter == "prometheus" {
		reg := prometheus.NewRegistry()
		obsCfg.Exporters.Registerer = reg
		gatherer = reg
	}

	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("observer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()
	logger := obs.Logger()

	metrics, err := observe.NewCacheMetrics(obs.Meter())
	if err != nil {
		return fmt.Errorf("cache metrics: %w", err)
	}

	pools := cache.NewPools(cfg.Pools(), metrics, logger)
	defer pools.Close()

	if err := metrics.ObservePools(poolGauges(pools)); err != nil {
		return fmt.Errorf("pool gauges: %w", err)
	}

	codec, err := cache.NewCodec(cfg.Cache.Codec)
	if err != nil {
		return err
	}
	mw, err := cache.NewMiddleware(cache.MiddlewareConfig{
		Store:        pools.API,
		Codec:        codec,
		MaxBodyBytes: cfg.Cache.MaxBodyBytes,
		Hooks:        metrics,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	inv := cache.NewInvalidator(logger, pools.Caches()...)

	agg := health.NewAggregator(health.AggregatorConfig{Logger: logger})
	for _, store := range pools.All() {
		agg.Register(health.NewStoreChecker(store, cfg.Cache.CapacityThreshold))
	}
	agg.Register(health.NewMemoryChecker(health.MemoryCheckerConfig{}))

	obsMW, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Addr:            cfg.Addr,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Pools:           pools,
		Cache:           mw,
		Invalidator:     inv,
		Observe:         obsMW,
		Authenticator:   newAuthenticator(cfg.Auth),
		Health:          agg,
		Gatherer:        gatherer,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	catalog := demo.NewCatalog()
	demo.Register(srv, &demo.Handlers{
		Catalog:     catalog,
		Ledger:      demo.NewLedger(),
		Invalidator: inv,
		Logger:      logger,
	})

	var scheduler *cache.WarmupScheduler
	if cfg.Warmup.Enabled {
		var warmer *cache.Warmer
		scheduler, warmer, err = newScheduler(cfg.Warmup, pools.API, catalog, codec, metrics, logger)
		if err != nil {
			return err
		}
		agg.Register(warmupBreakerCheck(warmer))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	if scheduler != nil {
		g.Go(func() error {
			if err := scheduler.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	logger.Info(ctx, "respcached started",
		observe.Field{Key: "addr", Value: cfg.Addr},
		observe.Field{Key: "codec", Value: codec.Name()},
		observe.Field{Key: "admin", Value: cfg.Auth.Enabled()},
	)
	return g.Wait()
}

func newScheduler(cfg config.WarmupConfig, store *cache.Store, catalog *demo.Catalog, codec cache.Codec, hooks cache.Hooks, logger observe.Logger) (*cache.WarmupScheduler, *cache.Warmer, error) {
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  2,
		InitialDelay: 200 * time.Millisecond,
		Jitter:       true,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			logger.Debug(context.Background(), "warmup producer retry",
				observe.Field{Key: "attempt", Value: attempt},
				observe.Field{Key: "delay_ms", Value: delay.Milliseconds()},
				observe.Field{Key: "error", Value: err},
			)
		},
	})
	warmer, err := cache.NewWarmer(store, cache.WarmupConfig{
		Concurrency: cfg.Concurrency,
		Executor: resilience.NewExecutor(
			resilience.WithTimeout(cfg.Timeout),
			resilience.WithRetry(retry),
		),
		Breaker: warmupBreakerConfig(logger),
		Hooks:   hooks,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, err
	}

	jobs, err := demo.GameConfigWarmups(catalog, cache.NewDefaultKeyGenerator(), codec)
	if err != nil {
		return nil, nil, err
	}
	scheduler := cache.NewWarmupScheduler(warmer, cfg.Interval)
	for _, job := range jobs {
		if err := scheduler.Register(job); err != nil {
			return nil, nil, err
		}
	}
	return scheduler, warmer, nil
}

// warmupBreakerConfig is the template for the per-key warmup breakers.
func warmupBreakerConfig(logger observe.Logger) resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		MaxFailures: 5,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn(context.Background(), "circuit breaker state changed",
				observe.Field{Key: "breaker", Value: name},
				observe.Field{Key: "from", Value: from.String()},
				observe.Field{Key: "to", Value: to.String()},
			)
		},
	}
}

// warmupBreakerCheck reports degraded while any warmup key breaker is open.
func warmupBreakerCheck(warmer *cache.Warmer) health.Checker {
	return health.NewCheckerFunc("warmup.breakers", func(context.Context) health.Result {
		open := warmer.OpenBreakers()
		details := map[string]any{"open": open}
		if len(open) == 0 {
			return health.Healthy("warmup producers ok").WithDetails(details)
		}
		return health.Degraded("warmup producers failing").WithDetails(details)
	})
}

// newAuthenticator returns nil when no admin credential is configured.
func newAuthenticator(cfg config.AuthConfig) auth.Authenticator {
	if !cfg.Enabled() {
		return nil
	}

	var jwtAuth, keyAuth auth.Authenticator
	if cfg.JWTSecret != "" {
		jwtAuth = auth.NewJWTAuthenticator(auth.JWTConfig{
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			Leeway:   30 * time.Second,
		}, auth.NewStaticKeyProvider([]byte(cfg.JWTSecret)))
	}
	if len(cfg.AdminKeys) > 0 {
		store := auth.NewMemoryAPIKeyStore()
		for i, key := range cfg.AdminKeys {
			store.Add(&auth.APIKeyInfo{
				ID:        fmt.Sprintf("admin-%d", i+1),
				KeyHash:   auth.HashAPIKey(key),
				Principal: fmt.Sprintf("admin-key-%d", i+1),
				Roles:     []string{auth.RoleAdmin},
			})
		}
		keyAuth = auth.NewAPIKeyAuthenticator(store)
	}
	return auth.NewCompositeAuthenticator(jwtAuth, keyAuth)
}

func poolGauges(pools *cache.Pools) func() []observe.PoolGauge {
	return func() []observe.PoolGauge {
		stores := pools.All()
		out := make([]observe.PoolGauge, 0, len(stores))
		for _, s := range stores {
			st := s.Stats()
			out = append(out, observe.PoolGauge{
				Pool:        st.Pool,
				Entries:     int64(st.Entries),
				MemoryBytes: st.MemoryUsage,
				HitRate:     st.HitRate,
			})
		}
		return out
	}
}
