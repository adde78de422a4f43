package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// slowWaitThreshold is the limiter wait above which a debug line is logged.
const slowWaitThreshold = time.Second

// rateLimitedLLM paces outgoing calls with a token bucket so that the
// topic fan-out does not burst past the provider's per-minute quota.
type rateLimitedLLM struct {
	next    CoreLLM
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware that enforces a shared token bucket.
// The limit parameter sets requests per second, while burst allows
// temporary spikes above the sustained rate. Every client built with the
// returned middleware shares one bucket.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next CoreLLM) CoreLLM {
		return &rateLimitedLLM{
			next:    next,
			limiter: limiter,
		}
	}
}

// DoRequest waits for a token before forwarding the request. It returns
// early if ctx is done while waiting.
func (r *rateLimitedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		return "", 0, 0, fmt.Errorf("rate limit: %w", err)
	}
	if waited := time.Since(start); waited > slowWaitThreshold {
		slog.DebugContext(ctx, "model call paced by local rate limiter",
			"operation", OperationFromContext(ctx),
			"waited", waited)
	}
	return r.next.DoRequest(ctx, prompt, opts)
}

// GetModel returns the model name from the wrapped implementation.
func (r *rateLimitedLLM) GetModel() string { return r.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (r *rateLimitedLLM) SetModel(m string) { r.next.SetModel(m) }
