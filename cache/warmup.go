package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/respcache/observe"
	"github.com/jonwraymond/respcache/resilience"
)

// Producer computes the value for a key during warmup. Its only inputs are
// the context and the key, so it can run on any goroutine.
type Producer interface {
	Produce(ctx context.Context, key string) ([]byte, error)
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc func(ctx context.Context, key string) ([]byte, error)

// Produce calls f.
func (f ProducerFunc) Produce(ctx context.Context, key string) ([]byte, error) {
	return f(ctx, key)
}

// ResponseProducer adapts a function returning a Response into a Producer
// that encodes it with codec, so entries read by the middleware can be warmed.
func ResponseProducer(codec Codec, fn func(ctx context.Context, key string) (Response, error)) Producer {
	return ProducerFunc(func(ctx context.Context, key string) ([]byte, error) {
		resp, err := fn(ctx, key)
		if err != nil {
			return nil, err
		}
		return codec.Encode(resp)
	})
}

// WarmupJob names a set of hot keys and how to produce them.
type WarmupJob struct {
	Name     string
	Keys     []string
	Producer Producer

	// TTL for produced entries. <= 0 selects the store default.
	TTL time.Duration

	// Tags attached to every produced entry.
	Tags []string
}

// WarmupReport summarizes one warmup pass.
type WarmupReport struct {
	Job       string
	Attempted int
	Stored    int
	Skipped   int // already present
	Failed    map[string]error
	Duration  time.Duration
}

// Err joins the per-key failures, or returns nil when there were none.
func (r WarmupReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.Failed))
	for key := range r.Failed {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	errs := make([]error, 0, len(keys))
	for _, key := range keys {
		errs = append(errs, fmt.Errorf("cache: warm %q: %w", key, r.Failed[key]))
	}
	return errors.Join(errs...)
}

// WarmupConfig configures a Warmer.
type WarmupConfig struct {
	// Concurrency bounds in-flight producers.
	// Default: 4
	Concurrency int

	// Executor wraps each producer call with timeout and retry. It must not
	// carry a circuit breaker: breakers are kept per job key, see Breaker.
	// Default: 5s timeout, 2 attempts.
	Executor *resilience.Executor

	// Breaker is the template for the breaker guarding each job key. Name is
	// replaced with "<job>/<key>". A key whose producer keeps failing is
	// skipped on later passes until its breaker half-opens; other keys are
	// never affected.
	// Default: resilience defaults (opens after 5 consecutive failures).
	Breaker resilience.CircuitBreakerConfig

	Hooks  Hooks
	Logger observe.Logger
}

// Warmer populates a store ahead of demand.
type Warmer struct {
	store       *Store
	concurrency int
	exec        *resilience.Executor
	breaker     resilience.CircuitBreakerConfig
	hooks       Hooks
	logger      observe.Logger

	mu       sync.Mutex
	breakers map[string]*resilience.CircuitBreaker
}

// NewWarmer creates a warmer for store.
func NewWarmer(store *Store, cfg WarmupConfig) (*Warmer, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if cfg.Executor != nil && cfg.Executor.CircuitBreaker() != nil {
		return nil, ErrSharedBreaker
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Executor == nil {
		cfg.Executor = DefaultWarmupExecutor()
	}
	if cfg.Hooks == nil {
		cfg.Hooks = NopHooks{}
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NewNopLogger()
	}
	return &Warmer{
		store:       store,
		concurrency: cfg.Concurrency,
		exec:        cfg.Executor,
		breaker:     cfg.Breaker,
		hooks:       cfg.Hooks,
		logger:      cfg.Logger,
		breakers:    make(map[string]*resilience.CircuitBreaker),
	}, nil
}

// DefaultWarmupExecutor returns the executor used when none is configured.
func DefaultWarmupExecutor() *resilience.Executor {
	return resilience.NewExecutor(
		resilience.WithTimeout(5*time.Second),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  2,
			InitialDelay: 200 * time.Millisecond,
			Jitter:       true,
		})),
	)
}

// OpenBreakers returns the sorted names of key breakers that are not closed.
func (w *Warmer) OpenBreakers() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var names []string
	for name, cb := range w.breakers {
		if cb.State() != resilience.StateClosed {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (w *Warmer) breakerFor(job, key string) *resilience.CircuitBreaker {
	name := job + "/" + key

	w.mu.Lock()
	defer w.mu.Unlock()

	cb, ok := w.breakers[name]
	if !ok {
		cfg := w.breaker
		cfg.Name = name
		cb = resilience.NewCircuitBreaker(cfg)
		w.breakers[name] = cb
	}
	return cb
}

// produce runs the producer for key behind that key's breaker.
func (w *Warmer) produce(ctx context.Context, job WarmupJob, key string) ([]byte, error) {
	var value []byte
	err := w.breakerFor(job.Name, key).Execute(ctx, func(ctx context.Context) error {
		v, err := resilience.Do(ctx, w.exec, func(ctx context.Context) ([]byte, error) {
			return job.Producer.Produce(ctx, key)
		})
		value = v
		return err
	})
	return value, err
}

// Warm produces and stores every key of job that is not already present.
// Producer failures are recorded in the report and never stop other keys.
// The returned error is non-nil only for an unusable job or a cancelled ctx.
func (w *Warmer) Warm(ctx context.Context, job WarmupJob) (WarmupReport, error) {
	report := WarmupReport{Job: job.Name, Failed: make(map[string]error)}
	if job.Producer == nil {
		return report, ErrNilProducer
	}

	start := time.Now()
	pool := w.store.Name()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for _, key := range uniqueKeys(job.Keys) {
		if ctx.Err() != nil {
			break
		}
		if w.store.Contains(key) {
			report.Skipped++
			continue
		}
		report.Attempted++

		// Goroutines return nil: one failing key must not cancel the rest.
		g.Go(func() error {
			value, err := w.produce(gctx, job, key)
			if err != nil {
				w.hooks.WarmupFailed(pool, key, err)
				w.logger.Warn(gctx, "cache warmup failed",
					observe.Field{Key: "pool", Value: pool},
					observe.Field{Key: "job", Value: job.Name},
					observe.Field{Key: "key", Value: key},
					observe.Field{Key: "error", Value: err.Error()},
				)
				mu.Lock()
				report.Failed[key] = err
				mu.Unlock()
				return nil
			}

			w.store.SetWithTags(gctx, key, value, job.Tags, job.TTL)
			mu.Lock()
			report.Stored++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	w.logger.Info(ctx, "cache warmup finished",
		observe.Field{Key: "pool", Value: pool},
		observe.Field{Key: "job", Value: job.Name},
		observe.Field{Key: "stored", Value: report.Stored},
		observe.Field{Key: "skipped", Value: report.Skipped},
		observe.Field{Key: "failed", Value: len(report.Failed)},
		observe.Field{Key: "duration_ms", Value: report.Duration.Milliseconds()},
	)
	return report, ctx.Err()
}

// WarmupScheduler repeats registered jobs on an interval.
type WarmupScheduler struct {
	warmer   *Warmer
	interval time.Duration
	logger   observe.Logger

	mu   sync.Mutex
	jobs []WarmupJob
}

// NewWarmupScheduler creates a scheduler. interval <= 0 defaults to one minute.
func NewWarmupScheduler(warmer *Warmer, interval time.Duration) *WarmupScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &WarmupScheduler{
		warmer:   warmer,
		interval: interval,
		logger:   warmer.logger,
	}
}

// Register adds a job to every subsequent pass.
func (s *WarmupScheduler) Register(job WarmupJob) error {
	if job.Producer == nil {
		return ErrNilProducer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	return nil
}

// RunOnce runs every registered job once, in registration order.
func (s *WarmupScheduler) RunOnce(ctx context.Context) []WarmupReport {
	s.mu.Lock()
	jobs := append([]WarmupJob(nil), s.jobs...)
	s.mu.Unlock()

	reports := make([]WarmupReport, 0, len(jobs))
	for _, job := range jobs {
		report, err := s.warmer.Warm(ctx, job)
		reports = append(reports, report)
		if err != nil {
			break
		}
	}
	return reports
}

// Run warms immediately, then every interval, until ctx is done.
// It returns ctx.Err().
func (s *WarmupScheduler) Run(ctx context.Context) error {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(context.WithoutCancel(ctx), "cache warmup scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

func uniqueKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
