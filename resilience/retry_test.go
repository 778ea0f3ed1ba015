package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRetry_Defaults(t *testing.T) {
	r := NewRetry(RetryConfig{})
	cfg := r.Config()

	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.InitialDelay != 100*time.Millisecond {
		t.Errorf("InitialDelay = %v, want 100ms", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 30*time.Second {
		t.Errorf("MaxDelay = %v, want 30s", cfg.MaxDelay)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("Multiplier = %v, want 2.0", cfg.Multiplier)
	}
}

func TestRetry_SuccessOnRetry(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})

	attempts := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_Exhausted(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})
	boom := errors.New("boom")

	attempts := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		attempts++
		return boom
	})

	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if !errors.Is(err, ErrMaxRetriesExceeded) || !errors.Is(err, boom) {
		t.Errorf("Execute() error = %v, want ErrMaxRetriesExceeded wrapping %v", err, boom)
	}
}

func TestRetry_SingleAttemptReturnsRawError(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 1})
	boom := errors.New("boom")

	err := r.Execute(context.Background(), func(context.Context) error { return boom })
	if err != boom {
		t.Errorf("Execute() error = %v, want %v unchanged", err, boom)
	}
}

func TestRetry_PermanentNotRetried(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond})
	notFound := errors.New("game type not found")

	attempts := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		attempts++
		return Permanent(notFound)
	})

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if !errors.Is(err, notFound) || !IsPermanent(err) {
		t.Errorf("Execute() error = %v, want the permanent error", err)
	}
}

func TestRetry_CircuitOpenNotRetried(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond})

	attempts := 0
	_ = r.Execute(context.Background(), func(context.Context) error {
		attempts++
		return ErrCircuitOpen
	})
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Execute(ctx, func(context.Context) error { return errors.New("fail") })
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Execute() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Execute() did not return after cancellation")
	}
}

func TestRetry_OnRetry(t *testing.T) {
	var delays []time.Duration
	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	})

	_ = r.Execute(context.Background(), func(context.Context) error { return errors.New("x") })

	if len(delays) != 2 {
		t.Fatalf("OnRetry called %d times, want 2", len(delays))
	}
	if delays[0] != time.Millisecond || delays[1] != 2*time.Millisecond {
		t.Errorf("delays = %v, want [1ms 2ms]", delays)
	}
}

func TestRetry_BackoffStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy BackoffStrategy
		attempt  int
		want     time.Duration
	}{
		{"constant", BackoffConstant, 3, 100 * time.Millisecond},
		{"linear", BackoffLinear, 3, 300 * time.Millisecond},
		{"exponential", BackoffExponential, 3, 400 * time.Millisecond},
		{"exponential capped", BackoffExponential, 10, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetry(RetryConfig{
				InitialDelay: 100 * time.Millisecond,
				MaxDelay:     time.Second,
				Strategy:     tt.strategy,
			})
			if got := r.calculateDelay(tt.attempt); got != tt.want {
				t.Errorf("calculateDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetry_Jitter(t *testing.T) {
	r := NewRetry(RetryConfig{InitialDelay: 100 * time.Millisecond, Strategy: BackoffConstant, Jitter: true})

	for i := 0; i < 50; i++ {
		d := r.calculateDelay(1)
		if d < 100*time.Millisecond || d >= 125*time.Millisecond {
			t.Fatalf("jittered delay %v outside [100ms, 125ms)", d)
		}
	}
}
