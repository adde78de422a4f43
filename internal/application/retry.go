package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/domain"
)

// Default validity policy values.
const (
	DefaultValidityMaxAttempts = 1000
	DefaultValidityDelay       = time.Second
)

// ErrMalformedOutputCeiling is matched by MalformedOutputError. A run that
// hits it must halt the process: output that never parses points to a
// broken prompt or backend, not a transient glitch.
var ErrMalformedOutputCeiling = errors.New("malformed output retry ceiling exceeded")

// MalformedOutputError reports that every permitted attempt produced
// unparsable output.
type MalformedOutputError struct {
	// Attempts is the number of attempts made.
	Attempts int
	// Raw is the output of the last attempt.
	Raw string
}

// Error implements the error interface for MalformedOutputError.
func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed output after %d attempts; last response: %q", e.Attempts, truncate(e.Raw, 200))
}

// Is matches ErrMalformedOutputCeiling.
func (e *MalformedOutputError) Is(target error) bool { return target == ErrMalformedOutputCeiling }

// RetryCounter counts validity attempts. It is safe for concurrent use and
// is owned by the caller, typically one per pipeline run.
type RetryCounter struct {
	n atomic.Int64
}

// Add increments the counter by delta.
func (c *RetryCounter) Add(delta int64) { c.n.Add(delta) }

// Load returns the current count.
func (c *RetryCounter) Load() int64 { return c.n.Load() }

// ValidityPolicy bounds how many times an operation is retried while it
// keeps producing invalid output.
type ValidityPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int `yaml:"max_attempts" validate:"min=1"`
	// Delay is the wait between invalid attempts.
	Delay time.Duration `yaml:"delay" validate:"min=0"`
}

// DefaultValidityPolicy returns the policy of 1000 attempts one second apart.
func DefaultValidityPolicy() ValidityPolicy {
	return ValidityPolicy{
		MaxAttempts: DefaultValidityMaxAttempts,
		Delay:       DefaultValidityDelay,
	}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// EnsureValid calls op until isFailure reports a valid result, then returns
// it. counter is incremented once per attempt, including the first. Errors
// returned by op end the loop immediately. After policy.MaxAttempts
// invalid results a *MalformedOutputError carrying the last raw output is
// returned.
func EnsureValid[T any](
	ctx context.Context,
	policy ValidityPolicy,
	counter *RetryCounter,
	op func(context.Context) (T, error),
	isFailure func(T) (raw string, failed bool),
) (T, error) {
	return ensureValid(ctx, policy, counter, contextSleep, op, isFailure)
}

func ensureValid[T any](
	ctx context.Context,
	policy ValidityPolicy,
	counter *RetryCounter,
	sleep Sleeper,
	op func(context.Context) (T, error),
	isFailure func(T) (string, bool),
) (T, error) {
	var zero T
	attempts := max(policy.MaxAttempts, 1)

	var lastRaw string
	for attempt := 1; attempt <= attempts; attempt++ {
		if counter != nil {
			counter.Add(1)
		}

		result, err := op(ctx)
		if err != nil {
			return zero, err
		}

		raw, failed := isFailure(result)
		if !failed {
			return result, nil
		}
		lastRaw = raw

		if attempt == attempts {
			break
		}
		slog.WarnContext(ctx, "invalid model output, retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"delay", policy.Delay)
		if err := sleep(ctx, policy.Delay); err != nil {
			return zero, fmt.Errorf("validity retry interrupted after %d attempts: %w", attempt, err)
		}
	}

	return zero, &MalformedOutputError{Attempts: attempts, Raw: lastRaw}
}

// critiqueFailure is the validity predicate for critique results.
func critiqueFailure(r domain.CritiqueResult) (string, bool) {
	return r.Raw, r.Kind == domain.CritiqueMalformed
}

// EnsureValidCritique retries op until it returns a critique that is not
// the malformed variant.
func EnsureValidCritique(
	ctx context.Context,
	policy ValidityPolicy,
	counter *RetryCounter,
	op func(context.Context) (domain.CritiqueResult, error),
) (domain.CritiqueResult, error) {
	return EnsureValid(ctx, policy, counter, op, critiqueFailure)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
