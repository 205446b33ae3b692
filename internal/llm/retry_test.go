package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns the queued responses in order.
type scriptedClient struct {
	calls     int
	responses []string
	errs      []error
}

func (c *scriptedClient) Complete(_ context.Context, _ []Message, _ []string) (string, error) {
	idx := c.calls
	c.calls++
	if idx < len(c.errs) && c.errs[idx] != nil {
		return "", c.errs[idx]
	}
	if idx < len(c.responses) {
		return c.responses[idx], nil
	}
	return "", &ProviderError{Kind: KindRateLimited, Message: "rate limited"}
}

func retryTestConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxRetries = 3
	cfg.InitialBackoff = 100 * time.Millisecond
	cfg.MaxBackoff = 1 * time.Second
	cfg.BackoffFactor = 2.0
	cfg.RequestTimeout = 0
	return cfg
}

func newTestRetrying(inner Client, cfg Config) (*RetryingClient, *[]time.Duration) {
	client := NewRetryingClient(inner, cfg)
	waits := &[]time.Duration{}
	client.sleep = func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return client, waits
}

func TestRetryingClientSucceedsAfterTransientFailures(t *testing.T) {
	inner := &scriptedClient{
		errs: []error{
			&ProviderError{Kind: KindTransport, Message: "connection reset"},
			&ProviderError{Kind: KindRateLimited, Message: "slow down"},
			nil,
		},
		responses: []string{"", "", "ok"},
	}
	client, waits := newTestRetrying(inner, retryTestConfig())

	result, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, inner.calls)
	assert.Len(t, *waits, 2)
}

func TestRetryingClientExhaustsBudget(t *testing.T) {
	inner := &scriptedClient{} // always rate limited
	client, waits := newTestRetrying(inner, retryTestConfig())

	_, err := client.Complete(context.Background(), nil, nil)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, KindRateLimited, provErr.Kind)
	// MaxRetries=3 means 4 attempts total and 3 waits.
	assert.Equal(t, 4, inner.calls)
	assert.Equal(t, 4, provErr.Attempts)
	assert.Len(t, *waits, 3)
}

func TestRetryingClientBackoffIsNonDecreasing(t *testing.T) {
	inner := &scriptedClient{}
	client, waits := newTestRetrying(inner, retryTestConfig())

	_, err := client.Complete(context.Background(), nil, nil)
	require.Error(t, err)

	require.Len(t, *waits, 3)
	for i := 1; i < len(*waits); i++ {
		assert.GreaterOrEqual(t, (*waits)[i], (*waits)[i-1])
	}
	assert.Equal(t, 100*time.Millisecond, (*waits)[0])
	assert.Equal(t, 200*time.Millisecond, (*waits)[1])
	assert.Equal(t, 400*time.Millisecond, (*waits)[2])
}

func TestRetryingClientHonorsRetryAfter(t *testing.T) {
	inner := &scriptedClient{
		errs: []error{
			&ProviderError{Kind: KindRateLimited, Message: "rate limited", RetryAfter: 5 * time.Second},
			nil,
		},
		responses: []string{"", "ok"},
	}
	client, waits := newTestRetrying(inner, retryTestConfig())

	result, err := client.Complete(context.Background(), nil, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	require.Len(t, *waits, 1)
	assert.Equal(t, 5*time.Second, (*waits)[0])
}

func TestRetryingClientDoesNotRetryAuthErrors(t *testing.T) {
	inner := &scriptedClient{
		errs: []error{&ProviderError{Kind: KindAuth, Message: "bad key"}},
	}
	client, waits := newTestRetrying(inner, retryTestConfig())

	_, err := client.Complete(context.Background(), nil, nil)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, KindAuth, provErr.Kind)
	assert.Equal(t, 1, inner.calls)
	assert.Empty(t, *waits)
}

func TestRetryingClientStopsOnCancelledContext(t *testing.T) {
	inner := &scriptedClient{}
	client, _ := newTestRetrying(inner, retryTestConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, nil, nil)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, 0, inner.calls)
}

func TestRetryingClientMaxBackoffCap(t *testing.T) {
	cfg := retryTestConfig()
	cfg.MaxRetries = 6
	cfg.MaxBackoff = 300 * time.Millisecond
	inner := &scriptedClient{}
	client, waits := newTestRetrying(inner, cfg)

	_, err := client.Complete(context.Background(), nil, nil)
	require.Error(t, err)

	for _, wait := range *waits {
		assert.LessOrEqual(t, wait, 300*time.Millisecond)
	}
}
