package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// RetryProvider retries transient failures (rate limits, 5xx, transport
// errors) with exponential backoff.
type RetryProvider struct {
	provider   Provider
	maxRetries int
	backoff    time.Duration
}

// NewRetryProvider retries up to maxRetries times, waiting backoff, then
// twice that, and so on.
func NewRetryProvider(provider Provider, maxRetries int, backoff time.Duration) Provider {
	return &RetryProvider{provider: provider, maxRetries: maxRetries, backoff: backoff}
}

func (r *RetryProvider) Name() string {
	return r.provider.Name()
}

func (r *RetryProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	wait := r.backoff
	for attempt := 0; ; attempt++ {
		resp, err := r.provider.Complete(ctx, req)
		if err == nil || attempt >= r.maxRetries || !retryable(err) {
			return resp, err
		}
		select {
		case <-ctx.Done():
			return nil, adapterError(r.provider.Name(), ctx.Err())
		case <-time.After(wait):
		}
		wait *= 2
	}
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, errEmptyReply) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return transientStatus(reqErr.HTTPStatusCode)
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return transientStatus(statusErr.StatusCode)
	}
	return true
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
