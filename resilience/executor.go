package resilience

import (
	"context"
	"sync"
	"time"
)

// Executor composes timeout, retry and circuit breaking.
type Executor struct {
	circuitBreaker *CircuitBreaker
	retry          *Retry
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker adds a circuit breaker to the executor.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.circuitBreaker = cb
	}
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// WithTimeout bounds each attempt to timeout.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout})
	}
}

// CircuitBreaker returns the configured breaker, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker {
	return e.circuitBreaker
}

// Execute runs op through the configured patterns, outermost first:
// circuit breaker, retry, timeout. The timeout applies per attempt and the
// breaker sees one outcome per Execute call. A nil Executor runs op directly.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	if e == nil {
		return op(ctx)
	}

	execute := op

	if e.timeout != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.timeout.Execute(ctx, inner)
		}
	}

	if e.retry != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.retry.Execute(ctx, inner)
		}
	}

	if e.circuitBreaker != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.circuitBreaker.Execute(ctx, inner)
		}
	}

	return execute(ctx)
}

// Do runs op through e and returns its value. The value of a failed or
// abandoned attempt is discarded.
func Do[T any](ctx context.Context, e *Executor, op func(context.Context) (T, error)) (T, error) {
	var (
		mu     sync.Mutex
		result T
	)
	err := e.Execute(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		// A timed-out attempt may finish after the caller moved on.
		if err := ctx.Err(); err != nil {
			return err
		}
		mu.Lock()
		result = v
		mu.Unlock()
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	mu.Lock()
	defer mu.Unlock()
	return result, nil
}
