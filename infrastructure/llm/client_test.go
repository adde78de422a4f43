package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/ports"
)

func ptr[T any](v T) *T { return &v }

// draftParams mirrors the settings used for topic drafts.
func draftParams() ports.GenerationParams {
	return ports.GenerationParams{Temperature: ptr(0.2), WebSearch: true}
}

func TestNewClient(t *testing.T) {
	RegisterProviderFactory("test-provider", func(config ClientConfig) (CoreLLM, error) {
		mock := NewMockCoreLLM()
		mock.Model = config.Model
		return mock, nil
	})
	RegisterProviderFactory("failing-provider", func(ClientConfig) (CoreLLM, error) {
		return nil, errors.New("boom")
	})

	tests := []struct {
		name         string
		providerType string
		config       ClientConfig
		wantErr      string
	}{
		{
			name:         "valid configuration",
			providerType: "test-provider",
			config:       ClientConfig{APIKey: "key", Model: "gemini-2.5-flash"},
		},
		{
			name:         "missing API key",
			providerType: "test-provider",
			config:       ClientConfig{Model: "gemini-2.5-flash"},
			wantErr:      ErrEmptyAPIKey.Error(),
		},
		{
			name:         "missing model",
			providerType: "test-provider",
			config:       ClientConfig{APIKey: "key"},
			wantErr:      "model is required",
		},
		{
			name:         "unknown provider",
			providerType: "nope",
			config:       ClientConfig{APIKey: "key", Model: "m"},
			wantErr:      "unknown provider: nope",
		},
		{
			name:         "factory failure",
			providerType: "failing-provider",
			config:       ClientConfig{APIKey: "key", Model: "m"},
			wantErr:      "failed to create provider: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.providerType, tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, client)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.config.Model, client.GetModel())
			assert.Equal(t, tt.providerType, client.Provider())
		})
	}
}

func TestClientComplete_PassesGenerationParams(t *testing.T) {
	mock := NewMockCoreLLM()
	client := NewClientFromCore("test", mock)

	params := ports.GenerationParams{
		Temperature: ptr(0.0),
		TopK:        ptr(1),
		Format:      ports.ResponseFormatJSON,
	}
	response, err := client.Complete(context.Background(), "critique", params)

	require.NoError(t, err)
	assert.Equal(t, "test response", response)
	assert.Equal(t, map[string]any{
		ports.OptTemperature:      0.0,
		ports.OptTopK:             1,
		ports.OptResponseMIMEType: ports.MIMETypeJSON,
	}, mock.LastOpts)
}

func TestClientCompleteWithUsage(t *testing.T) {
	mock := NewMockCoreLLM()
	client := NewClientFromCore("test", mock)

	response, in, out, err := client.CompleteWithUsage(context.Background(), "prompt", ports.GenerationParams{})

	require.NoError(t, err)
	assert.Equal(t, "test response", response)
	assert.Equal(t, 10, in)
	assert.Equal(t, 20, out)
	assert.Equal(t, []string{"prompt"}, mock.GetPrompts())
}

func TestClientWithMiddleware_OrderIsOutermostFirst(t *testing.T) {
	var order []string
	record := func(name string) Middleware {
		return func(next CoreLLM) CoreLLM {
			return &orderLLM{next: next, name: name, order: &order}
		}
	}

	client := NewClientFromCore("test", NewMockCoreLLM(), record("first"), record("second"), record("third"))
	_, err := client.Complete(context.Background(), "prompt", ports.GenerationParams{})

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestRegisteredProviders(t *testing.T) {
	providers := RegisteredProviders()

	assert.Contains(t, providers, "google")
	assert.Contains(t, providers, "openai")
	assert.Contains(t, providers, "openrouter")
	assert.Contains(t, providers, "anthropic")
	assert.IsNonDecreasing(t, providers)
}

func TestParseRequestOptions(t *testing.T) {
	t.Run("full option set", func(t *testing.T) {
		opts := draftParams().Options()
		opts[ports.OptTopK] = 40
		opts["frequency_penalty"] = 0.5

		got := ParseRequestOptions(opts, "gemini-2.5-flash")

		require.NotNil(t, got.Temperature)
		assert.InDelta(t, 0.2, *got.Temperature, 1e-9)
		require.NotNil(t, got.TopK)
		assert.Equal(t, 40, *got.TopK)
		assert.True(t, got.WebSearch)
		assert.Equal(t, "gemini-2.5-flash", got.Model)
		assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
		assert.Equal(t, map[string]any{"frequency_penalty": 0.5}, got.Extra)
	})

	t.Run("invalid values fall back to defaults", func(t *testing.T) {
		got := ParseRequestOptions(map[string]any{
			ports.OptTemperature: 3.5,
			ports.OptTopP:        -1.0,
			ports.OptTopK:        0,
			ports.OptMaxTokens:   -5,
			ports.OptWebSearch:   "yes",
		}, "m")

		assert.Nil(t, got.Temperature)
		assert.Nil(t, got.TopP)
		assert.Nil(t, got.TopK)
		assert.False(t, got.WebSearch)
		assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	})

	t.Run("top_k accepts float from decoded config", func(t *testing.T) {
		got := ParseRequestOptions(map[string]any{ports.OptTopK: 20.0}, "m")
		require.NotNil(t, got.TopK)
		assert.Equal(t, 20, *got.TopK)
	})

	t.Run("json mime type", func(t *testing.T) {
		got := ParseRequestOptions(map[string]any{ports.OptResponseMIMEType: ports.MIMETypeJSON}, "m")
		assert.True(t, got.WantsJSON())
	})
}

type orderLLM struct {
	next  CoreLLM
	name  string
	order *[]string
}

func (o *orderLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	*o.order = append(*o.order, o.name)
	return o.next.DoRequest(ctx, prompt, opts)
}

func (o *orderLLM) GetModel() string  { return o.next.GetModel() }
func (o *orderLLM) SetModel(m string) { o.next.SetModel(m) }
