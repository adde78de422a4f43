package units

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alexleeyt8888/StockFanAI-Bot/infrastructure/llm"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/domain"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/ports"
)

var _ ports.Critic = (*CritiqueUnit)(nil)

// CritiqueUnit fact-checks every draft of a working set in one batched model
// call and parses the structured reply with ParseCritique. A single call
// lets the critic check consistency across topics.
type CritiqueUnit struct {
	name      string
	config    CritiqueConfig
	llmClient ports.LLMClient
	prompts   ports.PromptBuilder
}

// CritiqueConfig defines the generation settings for critique calls.
// Output is always requested as JSON.
type CritiqueConfig struct {
	SamplingConfig `yaml:",inline"`
}

// DefaultCritiqueConfig returns the reference critique settings.
func DefaultCritiqueConfig() CritiqueConfig {
	return CritiqueConfig{SamplingConfig: SamplingConfig{Temperature: DefaultTemperature}}
}

// NewCritiqueUnit creates a CritiqueUnit. It returns an error if a
// dependency is missing or the configuration is invalid.
func NewCritiqueUnit(name string, llmClient ports.LLMClient, prompts ports.PromptBuilder, config CritiqueConfig) (*CritiqueUnit, error) {
	if err := checkDeps(name, llmClient, prompts); err != nil {
		return nil, err
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &CritiqueUnit{
		name:      name,
		config:    config,
		llmClient: llmClient,
		prompts:   prompts,
	}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *CritiqueUnit) Name() string { return u.name }

// Validate checks if the unit is properly configured and ready for execution.
func (u *CritiqueUnit) Validate() error {
	return validateUnit(u.name, u.llmClient, u.config)
}

// Params returns the generation parameters used for every critique call.
// Search grounding stays off because Gemini rejects it alongside a JSON
// response type.
func (u *CritiqueUnit) Params() ports.GenerationParams {
	params := u.config.params()
	params.Format = ports.ResponseFormatJSON
	return params
}

// Critique sends every draft present in drafts, in topic order, to the
// model and parses the reply. Unparsable output comes back as the malformed
// variant with a nil error.
func (u *CritiqueUnit) Critique(ctx context.Context, subject string, topics domain.TopicSet, drafts *domain.WorkingSet) (domain.CritiqueResult, error) {
	entries := drafts.Ordered(topics)
	if len(entries) == 0 {
		return domain.CritiqueResult{}, fmt.Errorf("unit %s: %w", u.name, ErrNothingToCritique)
	}

	prompt, err := u.prompts.CritiquePrompt(subject, entries)
	if err != nil {
		return domain.CritiqueResult{}, fmt.Errorf("unit %s: failed to build critique prompt: %w", u.name, err)
	}

	ctx = llm.WithOperation(ctx, OperationCritique)
	response, err := u.llmClient.Complete(ctx, prompt, u.Params())
	if err != nil {
		return domain.CritiqueResult{}, fmt.Errorf("unit %s: critique call failed: %w", u.name, err)
	}

	result := ParseCritique(response)
	if result.IsMalformed() {
		slog.WarnContext(ctx, "critique output could not be parsed",
			"unit", u.name,
			"subject", subject,
			"response_chars", len(response))
	}
	return result, nil
}
