package llm

import (
	"sync"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/ports"
)

// BaseProvider provides common, thread-safe functionality for all LLM providers,
// primarily for managing the model name.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the name of the model currently configured for the provider.
// It is safe for concurrent use.
func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// SetModel updates the model name for the provider.
// It is safe for concurrent use.
func (b *BaseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// RequestOptions represents a standardized set of configuration parameters for an LLM request.
// It consolidates common settings across different providers.
type RequestOptions struct {
	// MaxTokens specifies the maximum number of tokens to generate.
	MaxTokens int
	// Model is the identifier of the language model to use for the request.
	Model string
	// Temperature controls the randomness of the output.
	// A nil value indicates that the provider's default should be used.
	Temperature *float64
	// TopP is the nucleus sampling threshold.
	// A nil value indicates that the provider's default should be used.
	TopP *float64
	// TopK restricts sampling to the K most likely tokens.
	// A nil value indicates that the provider's default should be used.
	TopK *int
	// MIMEType is the requested response MIME type. Empty means plain text.
	MIMEType string
	// WebSearch enables search grounding on providers that support it.
	WebSearch bool
	// System provides instructions that guide the model's behavior.
	System string
	// Extra holds any provider-specific options that are not part of the standardized set.
	Extra map[string]any
}

// WantsJSON reports whether the request asked for a JSON payload.
func (o RequestOptions) WantsJSON() bool { return o.MIMEType == ports.MIMETypeJSON }

// ParseRequestOptions extracts and validates LLM request parameters from a map.
// It populates a RequestOptions struct with standardized values,
// using provided defaults for any missing or invalid entries.
// Any unrecognized options are collected into the Extra field.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		MaxTokens: ExtractOptionalInt(opts, ports.OptMaxTokens, DefaultMaxTokens, IsPositiveInt),
		Model:     ExtractOptionalString(opts, "model", defaultModel, IsNonEmptyString),
		System:    ExtractOptionalString(opts, "system", "", nil),
		MIMEType:  ExtractOptionalString(opts, ports.OptResponseMIMEType, "", IsNonEmptyString),
		WebSearch: ExtractOptionalBool(opts, ports.OptWebSearch, false),
		Extra:     make(map[string]any),
	}

	if temp := ExtractOptionalFloat64(opts, ports.OptTemperature, -1, IsValidTemperature); temp != -1 {
		options.Temperature = &temp
	}

	if topP := ExtractOptionalFloat64(opts, ports.OptTopP, -1, IsValidTopP); topP != -1 {
		options.TopP = &topP
	}

	if raw, ok := opts[ports.OptTopK]; ok {
		if topK, ok := SafeInt(raw); ok && IsValidTopK(topK) {
			options.TopK = &topK
		}
	}

	// Collect any provider-specific options that were not handled above.
	for k, v := range opts {
		switch k {
		case ports.OptMaxTokens, "model", "system", ports.OptTemperature, ports.OptTopP,
			ports.OptTopK, ports.OptResponseMIMEType, ports.OptWebSearch:
		// These are standard options and have already been processed.
		default:
			options.Extra[k] = v
		}
	}

	return options
}

// TokenCounter provides a utility for estimating token counts from text.
// This is useful when a provider omits usage metadata.
type TokenCounter struct {
	// CharactersPerToken represents the average number of characters per token.
	CharactersPerToken float64
}

// NewTokenCounter creates a new TokenCounter with a default character-per-token ratio.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{
		CharactersPerToken: 4.0, // A common approximation for English text.
	}
}

// EstimateTokens calculates an estimated token count for a given string of text.
func (tc *TokenCounter) EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(float64(len(text)) / tc.CharactersPerToken)
}

// GetTokenCount returns the actual token count if it is available and positive.
// Otherwise, it falls back to estimating the count based on the provided text.
func (tc *TokenCounter) GetTokenCount(actualCount int, text string) int {
	if actualCount > 0 {
		return actualCount
	}
	return tc.EstimateTokens(text)
}
