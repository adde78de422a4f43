package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Default quota policy values.
const (
	// DefaultQuotaMaxAttempts is the total number of calls made before quota
	// exhaustion is reported to the caller.
	DefaultQuotaMaxAttempts = 3
	// DefaultQuotaDelay is the wait used when the provider suggests none.
	DefaultQuotaDelay = 60 * time.Second
)

// QuotaPolicy bounds how long a call waits out provider quota exhaustion.
type QuotaPolicy struct {
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts int
	// DefaultDelay is the wait used when the provider gives no hint.
	DefaultDelay time.Duration
}

// DefaultQuotaPolicy returns the policy of three attempts with a one-minute
// fallback wait.
func DefaultQuotaPolicy() QuotaPolicy {
	return QuotaPolicy{
		MaxAttempts:  DefaultQuotaMaxAttempts,
		DefaultDelay: DefaultQuotaDelay,
	}
}

// Sleeper waits for d or until ctx is done, returning ctx.Err() in the
// latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// contextSleep is the production Sleeper.
func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// quotaRetryLLM waits out rate limit errors, honoring the provider's
// suggested delay. Any other error is returned immediately.
type quotaRetryLLM struct {
	next   CoreLLM
	policy QuotaPolicy
	sleep  Sleeper
}

// QuotaOption customizes the quota middleware.
type QuotaOption func(*quotaRetryLLM)

// WithSleeper replaces the wait function, typically with a recording fake.
func WithSleeper(s Sleeper) QuotaOption {
	return func(q *quotaRetryLLM) { q.sleep = s }
}

// QuotaRetryMiddleware creates middleware that retries calls rejected for
// quota exhaustion. It makes at most policy.MaxAttempts calls and never
// waits after the final one; when every attempt is rejected the returned
// error matches ErrQuotaRetriesExceeded.
func QuotaRetryMiddleware(policy QuotaPolicy, opts ...QuotaOption) Middleware {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.DefaultDelay <= 0 {
		policy.DefaultDelay = DefaultQuotaDelay
	}

	return func(next CoreLLM) CoreLLM {
		q := &quotaRetryLLM{
			next:   next,
			policy: policy,
			sleep:  contextSleep,
		}
		for _, opt := range opts {
			opt(q)
		}
		return q
	}
}

// DoRequest executes the request, waiting out quota errors.
func (q *quotaRetryLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	var lastErr error

	for attempt := 1; attempt <= q.policy.MaxAttempts; attempt++ {
		response, tokensIn, tokensOut, err := q.next.DoRequest(ctx, prompt, opts)
		if err == nil {
			return response, tokensIn, tokensOut, nil
		}
		if !IsRateLimitError(err) {
			return "", 0, 0, err
		}

		lastErr = err
		if attempt == q.policy.MaxAttempts {
			break
		}

		delay := q.delayFor(err)
		slog.WarnContext(ctx, "model quota exhausted, waiting before retry",
			"operation", OperationFromContext(ctx),
			"model", q.next.GetModel(),
			"attempt", attempt,
			"max_attempts", q.policy.MaxAttempts,
			"delay", delay)

		if err := q.sleep(ctx, delay); err != nil {
			return "", 0, 0, fmt.Errorf("quota wait interrupted: %w", err)
		}
	}

	return "", 0, 0, fmt.Errorf("%w after %d attempts: %w", ErrQuotaRetriesExceeded, q.policy.MaxAttempts, lastErr)
}

// delayFor returns the provider-suggested wait, or the policy default.
func (q *quotaRetryLLM) delayFor(err error) time.Duration {
	if d, ok := RetryAfterFromError(err); ok {
		return d
	}
	return q.policy.DefaultDelay
}

// GetModel returns the model name from the wrapped implementation.
func (q *quotaRetryLLM) GetModel() string { return q.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (q *quotaRetryLLM) SetModel(m string) { q.next.SetModel(m) }
