package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls pass through.
	StateClosed State = iota
	// StateOpen means calls are rejected with ErrCircuitOpen.
	StateOpen
	// StateHalfOpen means a limited number of probe calls pass through.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// Name labels the breaker in state-change callbacks.
	Name string

	// MaxFailures is the number of consecutive failures before opening.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the max probe calls allowed while half-open.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange is called, under the breaker lock, when the state changes.
	OnStateChange func(name string, from, to State)

	// IsFailure determines if an error counts as a failure.
	// Default: non-nil errors that are neither permanent nor a cancellation
	// by the caller.
	IsFailure func(err error) bool

	// Clock returns the current time. Default: time.Now
	Clock func() time.Time
}

// CircuitBreaker stops calling an operation that keeps failing.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	rejected      int
	lastFailure   time.Time
	halfOpenCount int
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = defaultIsFailure
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

func defaultIsFailure(err error) bool {
	return err != nil && !IsPermanent(err) && !errors.Is(err, context.Canceled)
}

func isCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// Execute runs op unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := op(ctx)
	cb.afterRequest(err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// Reset closes the circuit and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	old := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenCount = 0
	cb.notifyLocked(old)
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case StateOpen:
		cb.rejected++
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.config.HalfOpenMaxRequests {
			cb.rejected++
			return ErrCircuitOpen
		}
		cb.halfOpenCount++
	}
	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := cb.config.IsFailure(err)
	old := cb.state

	switch cb.state {
	case StateClosed:
		if failed {
			cb.failures++
			cb.lastFailure = cb.config.Clock()
			if cb.failures >= cb.config.MaxFailures {
				cb.state = StateOpen
			}
		} else if err == nil {
			cb.failures = 0
		}

	case StateHalfOpen:
		if failed {
			cb.lastFailure = cb.config.Clock()
			cb.state = StateOpen
		} else {
			cb.successes++
			cb.state = StateClosed
			cb.failures = 0
		}
	}

	cb.notifyLocked(old)
}

func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && cb.config.Clock().Sub(cb.lastFailure) >= cb.config.ResetTimeout {
		cb.state = StateHalfOpen
		cb.halfOpenCount = 0
		cb.notifyLocked(StateOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) notifyLocked(old State) {
	if old != cb.state && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, old, cb.state)
	}
}

// Metrics returns current circuit breaker metrics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerMetrics{
		State:       cb.currentStateLocked(),
		Failures:    cb.failures,
		Successes:   cb.successes,
		Rejected:    cb.rejected,
		LastFailure: cb.lastFailure,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State       State
	Failures    int // consecutive failures while closed
	Successes   int // successful half-open probes
	Rejected    int // calls refused while open
	LastFailure time.Time
}
