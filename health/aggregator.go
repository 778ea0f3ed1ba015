package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/respcache/observe"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout bounds each CheckAll. Default: 10 seconds
	Timeout time.Duration

	// Logger receives a warning for every check that is not healthy.
	// Default: no-op
	Logger observe.Logger
}

// Aggregator runs a set of checkers concurrently and folds their results.
type Aggregator struct {
	timeout time.Duration
	logger  observe.Logger

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string // registration order
}

// Report is the folded outcome of every registered check.
type Report struct {
	Status  Status
	Results map[string]Result
}

// NewAggregator creates a new health aggregator.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NewNopLogger()
	}
	return &Aggregator{
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		checkers: make(map[string]Checker),
	}
}

// Register adds checker under its own name, replacing any checker with
// the same name.
func (a *Aggregator) Register(checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	name := checker.Name()
	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = checker
}

// CheckerNames returns the names of all registered checkers in
// registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.order...)
}

// Check runs a single named health check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()

	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return runCheck(ctx, checker), nil
}

// CheckAll runs every registered check concurrently. The overall status
// is the worst individual status; no checks means healthy.
func (a *Aggregator) CheckAll(ctx context.Context) Report {
	a.mu.RLock()
	checkers := make(map[string]Checker, len(a.checkers))
	for name, checker := range a.checkers {
		checkers[name] = checker
	}
	a.mu.RUnlock()

	report := Report{Status: StatusHealthy, Results: make(map[string]Result, len(checkers))}
	if len(checkers) == 0 {
		return report
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var mu sync.Mutex
	var g errgroup.Group
	for name, checker := range checkers {
		g.Go(func() error {
			result := runCheck(ctx, checker)
			mu.Lock()
			report.Results[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for name, result := range report.Results {
		report.Status = worse(report.Status, result.Status)
		if result.Status != StatusHealthy {
			a.logger.Warn(ctx, "health check not healthy",
				observe.Field{Key: "check", Value: name},
				observe.Field{Key: "status", Value: result.Status.String()},
				observe.Field{Key: "message", Value: result.Message},
			)
		}
	}
	return report
}

// runCheck runs checker and gives up when ctx ends first. An abandoned
// check finishes in the background; its result is dropped.
func runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	resultCh := make(chan Result, 1)

	go func() {
		result := checker.Check(ctx)
		result.Duration = time.Since(start)
		if result.Timestamp.IsZero() {
			result.Timestamp = start
		}
		resultCh <- result
	}()

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		return Result{
			Status:    StatusUnhealthy,
			Message:   "check timed out",
			Error:     ErrCheckTimeout,
			Duration:  time.Since(start),
			Timestamp: start,
		}
	}
}
