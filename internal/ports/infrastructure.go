// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"
	"time"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/domain"
)

// ResponseFormat hints the shape of output the model should produce.
type ResponseFormat string

// Supported response formats.
const (
	// ResponseFormatText requests free-form text.
	ResponseFormatText ResponseFormat = "text"
	// ResponseFormatJSON requests a single JSON payload.
	ResponseFormatJSON ResponseFormat = "json"
)

// Option keys used when GenerationParams travel through the provider
// middleware chain as an options map.
const (
	OptTemperature      = "temperature"
	OptTopP             = "top_p"
	OptTopK             = "top_k"
	OptMaxTokens        = "max_tokens"
	OptResponseMIMEType = "response_mime_type"
	OptWebSearch        = "web_search"
)

// MIME types corresponding to each ResponseFormat.
const (
	MIMETypeText = "text/plain"
	MIMETypeJSON = "application/json"
)

// GenerationParams holds the sampling and capability settings for one model
// call. Nil pointers leave the provider default in place.
type GenerationParams struct {
	// Temperature controls randomness of the output.
	Temperature *float64
	// TopP is the nucleus-sampling threshold.
	TopP *float64
	// TopK limits sampling to the K most likely tokens.
	TopK *int
	// MaxTokens caps the generated length. Zero uses the provider default.
	MaxTokens int
	// Format hints plain text or structured output.
	Format ResponseFormat
	// WebSearch enables search grounding where the provider supports it.
	WebSearch bool
}

// Options converts the parameters into the option map understood by the
// provider middleware chain.
func (p GenerationParams) Options() map[string]any {
	opts := make(map[string]any, 6)
	if p.Temperature != nil {
		opts[OptTemperature] = *p.Temperature
	}
	if p.TopP != nil {
		opts[OptTopP] = *p.TopP
	}
	if p.TopK != nil {
		opts[OptTopK] = *p.TopK
	}
	if p.MaxTokens > 0 {
		opts[OptMaxTokens] = p.MaxTokens
	}
	if p.Format == ResponseFormatJSON {
		opts[OptResponseMIMEType] = MIMETypeJSON
	}
	if p.WebSearch {
		opts[OptWebSearch] = true
	}
	return opts
}

// LLMClient defines the interface for interacting with Large Language
// Model providers.
// Implementations should handle provider-specific details like authentication,
// request formatting, and response parsing.
type LLMClient interface {
	// Complete sends a prompt to the model and returns the generated text.
	// Implementations retry quota exhaustion internally; every other
	// failure is returned to the caller unchanged in kind.
	Complete(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// GetModel returns the model identifier being used by this client.
	// This is useful for logging and debugging purposes.
	GetModel() string
}

// CallLogEntry describes one successful model call.
type CallLogEntry struct {
	Timestamp time.Time
	// Operation names the pipeline task that issued the call.
	Operation    string
	Model        string
	Temperature  *float64
	TopP         *float64
	TopK         *int
	MIMEType     string
	ToolsPresent bool
	Prompt       string
	Response     string
}

// CallLogger appends call records to an append-only log. Implementations
// must be safe for concurrent use. Append never fails the caller; write
// errors are reported by the implementation itself.
type CallLogger interface {
	Append(ctx context.Context, entry CallLogEntry)
}

// PromptBuilder resolves the text sent to the model for each task.
// The pipeline depends only on these signatures, never on prompt wording.
type PromptBuilder interface {
	// DraftPrompt returns the prompt for drafting topic about subject.
	DraftPrompt(subject string, topic domain.Topic) (string, error)

	// CritiquePrompt returns the batched fact-checking prompt covering every
	// entry of drafts.
	CritiquePrompt(subject string, drafts []domain.Entry) (string, error)

	// RevisionPrompt returns the prompt asking the model to apply
	// corrections to draft.
	RevisionPrompt(subject string, topic domain.Topic, draft string, corrections []domain.Correction) (string, error)
}

// PipelineObserver receives stage transitions of a pipeline run for
// tracing and metrics. Implementations must be safe for concurrent use.
type PipelineObserver interface {
	// StageStarted is called when the pipeline enters stage. The returned
	// context is used for work done within the stage.
	StageStarted(ctx context.Context, subject, stage string, cycle int) context.Context

	// StageFinished is called when the stage completes.
	StageFinished(ctx context.Context, subject, stage string, cycle int, elapsed time.Duration, err error)
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus,
// OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like retries, errors, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like response sizes.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
