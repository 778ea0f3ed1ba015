// Package resilience guards calls to slow or failing dependencies.
//
// Cache warmup uses it to run producers: each call gets a timeout, a bounded
// number of retries with backoff, and a circuit breaker that stops hammering
// an upstream that keeps failing.
//
//	exec := resilience.NewExecutor(
//	    resilience.WithTimeout(5*time.Second),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})),
//	)
//
//	value, err := resilience.Do(ctx, exec, func(ctx context.Context) ([]byte, error) {
//	    return loadGameConfig(ctx, "slots")
//	})
//
// Errors wrapped with Permanent are never retried and never count against
// the breaker; use them for answers that will not change on a second try.
package resilience
