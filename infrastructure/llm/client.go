// Package llm provides a unified interface for interacting with various LLM providers
// with built-in support for quota waits, rate limiting, call logging, metrics, and tracing.
//
// The package abstracts multiple LLM providers (Google, OpenAI-compatible
// gateways, Anthropic) behind a common interface while adding cross-cutting
// concerns through a middleware pattern. This allows the pipeline to switch
// providers or add operational features without changing unit code.
//
// Architecture:
//   - Core client implementation with middleware chain composition
//   - Provider implementations abstracted through CoreLLM interface
//   - Pluggable middleware for quota retry, rate limiting, call logs, metrics, tracing
//   - Factory registry for provider creation by name
//
// Basic usage:
//
//	client, err := llm.NewClient("google", llm.ClientConfig{
//	    APIKey: os.Getenv("GEMINI_API_KEY"),
//	    Model:  "gemini-2.5-flash",
//	})
//	response, err := client.Complete(ctx, "Hello world!", ports.GenerationParams{})
//
// Usage with middleware:
//
//	client, err := llm.NewClient("google", llm.ClientConfig{
//	    APIKey: os.Getenv("GEMINI_API_KEY"),
//	    Model:  "gemini-2.5-flash",
//	    Middleware: []llm.Middleware{
//	        llm.TracingMiddleware("stockfan"),
//	        llm.QuotaRetryMiddleware(llm.DefaultQuotaPolicy()),
//	        llm.CallLogMiddleware(callLog),
//	        llm.RateLimitMiddleware(2, 4),
//	    },
//	})
package llm

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/ports"
)

// CoreLLM defines the minimal interface that LLM providers must implement.
// This interface abstracts the core functionality needed to make requests
// to different LLM services, allowing the middleware system to wrap
// any conforming implementation.
type CoreLLM interface {
	// DoRequest sends a prompt to the LLM provider and returns the response.
	// The opts parameter carries the generation settings produced by
	// ports.GenerationParams.Options.
	// Returns the response text, input token count, output token count, and any error.
	DoRequest(
		ctx context.Context,
		prompt string,
		opts map[string]any,
	) (
		response string,
		tokensIn, tokensOut int,
		err error,
	)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel updates the model to use for subsequent requests.
	SetModel(model string)
}

// ClientConfig holds all configuration options for creating an LLM client.
type ClientConfig struct {
	// APIKey authenticates requests to the LLM provider.
	APIKey string

	// Model specifies which LLM model to use for requests.
	// Each provider supports different model names.
	Model string

	// BaseURL overrides the default API endpoint for the provider.
	// Leave empty to use the provider's default endpoint.
	BaseURL string

	// Timeout bounds the underlying HTTP transport for providers that
	// support it. Zero leaves the provider default in place.
	Timeout time.Duration

	// Middleware allows custom middleware insertion.
	// These are applied in the order specified, the first being outermost.
	Middleware []Middleware
}

// Middleware wraps a CoreLLM implementation to add cross-cutting functionality.
type Middleware func(CoreLLM) CoreLLM

// Client implements the ports.LLMClient interface with all cross-cutting concerns.
type Client struct {
	core     CoreLLM
	provider string
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient creates a new LLM client with the specified provider and configuration.
// This function assembles the middleware chain and validates configuration
// before returning a ready-to-use client instance.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	// Apply middleware in reverse order so the first middleware is the outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return &Client{core: core, provider: providerType}, nil
}

// NewClientFromCore wraps an existing CoreLLM with middleware. It is used
// when the provider is constructed outside the factory registry, such as
// in tests.
func NewClientFromCore(provider string, core CoreLLM, middleware ...Middleware) *Client {
	for i := len(middleware) - 1; i >= 0; i-- {
		core = middleware[i](core)
	}
	return &Client{core: core, provider: provider}
}

// Complete sends a prompt to the LLM and returns the response text.
func (c *Client) Complete(ctx context.Context, prompt string, params ports.GenerationParams) (string, error) {
	response, _, _, err := c.CompleteWithUsage(ctx, prompt, params)
	return response, err
}

// CompleteWithUsage sends a prompt to the LLM and returns the response along
// with input and output token counts.
func (c *Client) CompleteWithUsage(
	ctx context.Context,
	prompt string,
	params ports.GenerationParams,
) (string, int, int, error) {
	response, tokensIn, tokensOut, err := c.core.DoRequest(ctx, prompt, params.Options())
	if err != nil {
		llmErr := ports.NewLLMError(c.core.GetModel(), OperationFromContext(ctx), categorize(err))
		llmErr.TokensUsed = tokensIn + tokensOut
		if d, ok := RetryAfterFromError(err); ok {
			llmErr.RetryAfter = &d
		}
		return "", tokensIn, tokensOut, llmErr
	}
	return response, tokensIn, tokensOut, nil
}

// GetModel returns the currently configured model name from the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// Provider returns the registered provider name the client was built with.
func (c *Client) Provider() string { return c.provider }

// ProviderFactory creates a CoreLLM implementation from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

// Provider factory registry for extensibility.
var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory allows registration of custom LLM provider factories.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}

// RegisteredProviders returns the sorted names of every registered provider.
func RegisteredProviders() []string {
	return slices.Sorted(maps.Keys(providerFactories))
}
