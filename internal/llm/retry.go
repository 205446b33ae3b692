package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RetryingClient wraps a provider client with the retry/backoff policy.
// Retry state is scoped to a single Complete call.
type RetryingClient struct {
	inner  Client
	config Config

	// sleep is injectable for tests; it must honor context cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryingClient wraps inner with up to config.MaxRetries retries and
// exponential backoff between attempts.
func NewRetryingClient(inner Client, config Config) *RetryingClient {
	return &RetryingClient{
		inner:  inner,
		config: config,
		sleep:  sleepContext,
	}
}

// Complete calls the wrapped client, retrying retryable provider errors.
// Rate-limit responses wait the provider-supplied interval when present,
// otherwise the exponential schedule applies. Non-retryable errors and
// context cancellation return immediately without consuming attempts.
func (c *RetryingClient) Complete(ctx context.Context, messages []Message, images []string) (string, error) {
	backoff := c.config.InitialBackoff
	var lastErr *ProviderError

	maxAttempts := c.config.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", &ProviderError{Kind: KindTransport, Message: "call cancelled", Attempts: attempt, Cause: err}
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if c.config.RequestTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
		}
		result, err := c.inner.Complete(callCtx, messages, images)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return result, nil
		}

		var provErr *ProviderError
		if !errors.As(err, &provErr) {
			provErr = &ProviderError{Kind: KindTransport, Message: "provider call failed", Cause: err}
		}
		provErr.Attempts = attempt + 1
		lastErr = provErr

		if !provErr.Retryable() {
			return "", provErr
		}
		if attempt == maxAttempts-1 {
			break
		}

		wait := backoff
		if provErr.Kind == KindRateLimited && provErr.RetryAfter > 0 {
			wait = provErr.RetryAfter
		}
		slog.Debug("retrying provider call",
			"attempt", attempt+1, "kind", string(provErr.Kind), "wait", wait)
		if err := c.sleep(ctx, wait); err != nil {
			return "", &ProviderError{Kind: KindTransport, Message: "call cancelled during backoff", Attempts: attempt + 1, Cause: err}
		}

		backoff = time.Duration(float64(backoff) * c.config.BackoffFactor)
		if c.config.MaxBackoff > 0 && backoff > c.config.MaxBackoff {
			backoff = c.config.MaxBackoff
		}
	}

	return "", lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
