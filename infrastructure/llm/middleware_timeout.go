package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// attemptTimeoutLLM bounds each individual model call. It sits inside the
// quota middleware so that every attempt gets a fresh deadline while the
// caller's context still governs the whole sequence.
type attemptTimeoutLLM struct {
	next    CoreLLM
	timeout time.Duration
}

// AttemptTimeoutMiddleware creates middleware that gives every call its own
// deadline. A zero or negative timeout disables it.
func AttemptTimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		if timeout <= 0 {
			return next
		}
		return &attemptTimeoutLLM{
			next:    next,
			timeout: timeout,
		}
	}
}

// DoRequest executes the request under the per-attempt deadline. When only
// the attempt deadline fired, the error says so and still matches
// context.DeadlineExceeded.
func (t *attemptTimeoutLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	response, tokensIn, tokensOut, err := t.next.DoRequest(attemptCtx, prompt, opts)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		slog.WarnContext(ctx, "model call exceeded attempt timeout",
			"operation", OperationFromContext(ctx),
			"timeout", t.timeout)
		return "", 0, 0, fmt.Errorf("model call timed out after %v: %w", t.timeout, context.DeadlineExceeded)
	}
	return response, tokensIn, tokensOut, err
}

// GetModel returns the model name from the wrapped implementation.
func (t *attemptTimeoutLLM) GetModel() string { return t.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (t *attemptTimeoutLLM) SetModel(m string) { t.next.SetModel(m) }
