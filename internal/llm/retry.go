package llm

import (
	"context"
	"errors"
	"time"
)

const defaultRetryDelay = 500 * time.Millisecond

// RetryOnce wraps a Provider and retries a failed completion exactly
// once when the failure is a retryable provider error, such as a rate
// limit. Any second failure is returned to the caller; deciding how to
// degrade is the caller's job.
type RetryOnce struct {
	inner Provider
	delay time.Duration
}

// NewRetryOnce wraps the provider with single-retry behavior.
func NewRetryOnce(inner Provider) *RetryOnce {
	return &RetryOnce{inner: inner, delay: defaultRetryDelay}
}

// Name returns the wrapped provider's name.
func (r *RetryOnce) Name() string {
	return r.inner.Name()
}

// CreateCompletion delegates to the wrapped provider, retrying once
// after a short fixed delay on retryable failures.
func (r *RetryOnce) CreateCompletion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error) {
	resp, err := r.inner.CreateCompletion(ctx, request)
	if err == nil {
		return resp, nil
	}

	var perr *ProviderError
	if !errors.As(err, &perr) || !perr.IsRetryable {
		return nil, err
	}

	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return r.inner.CreateCompletion(ctx, request)
}
