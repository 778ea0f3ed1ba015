package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeoutConfig configures the timeout wrapper.
type TimeoutConfig struct {
	// Timeout is the maximum duration for one attempt.
	// Default: 30 seconds
	Timeout time.Duration
}

// Timeout bounds how long an operation may run.
type Timeout struct {
	config TimeoutConfig
}

// NewTimeout creates a new timeout wrapper.
func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Timeout{config: config}
}

// Execute runs op with a deadline. When the deadline passes, Execute returns
// an error matching ErrTimeout without waiting for op to notice; op keeps
// its cancelled context and should return promptly.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		// An op that returns the deadline error itself timed out too.
		if err != nil && errors.Is(err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return t.timeoutErr()
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return t.timeoutErr()
		}
		return ctx.Err()
	}
}

func (t *Timeout) timeoutErr() error {
	return fmt.Errorf("%w after %s", ErrTimeout, t.config.Timeout)
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}
