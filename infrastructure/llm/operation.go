package llm

import "context"

type operationKey struct{}

// WithOperation returns a context that names the pipeline task issuing model
// calls, such as "draft" or "critique". Middleware uses it for logs, metrics,
// and spans.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey{}, operation)
}

// OperationFromContext returns the operation name stored by WithOperation,
// or "unknown" when none was set.
func OperationFromContext(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey{}).(string); ok && op != "" {
		return op
	}
	return "unknown"
}
