package units

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexleeyt8888/StockFanAI-Bot/infrastructure/llm"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/domain"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/ports"
)

var _ ports.Reviser = (*RevisionUnit)(nil)

// ErrNoCorrections is returned when Revise is called with nothing to apply.
var ErrNoCorrections = errors.New("no corrections to apply")

// RevisionUnit rewrites one topic draft so that it incorporates a list of
// corrections. Revisions never use search grounding.
type RevisionUnit struct {
	name      string
	config    RevisionConfig
	llmClient ports.LLMClient
	prompts   ports.PromptBuilder
}

// RevisionConfig defines the generation settings for revision calls.
type RevisionConfig struct {
	SamplingConfig `yaml:",inline"`
}

// DefaultRevisionConfig returns the reference revision settings.
func DefaultRevisionConfig() RevisionConfig {
	return RevisionConfig{SamplingConfig: SamplingConfig{Temperature: DefaultTemperature}}
}

// NewRevisionUnit creates a RevisionUnit.
func NewRevisionUnit(name string, llmClient ports.LLMClient, prompts ports.PromptBuilder, config RevisionConfig) (*RevisionUnit, error) {
	if err := checkDeps(name, llmClient, prompts); err != nil {
		return nil, err
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &RevisionUnit{
		name:      name,
		config:    config,
		llmClient: llmClient,
		prompts:   prompts,
	}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *RevisionUnit) Name() string { return u.name }

// Validate checks if the unit is properly configured and ready for execution.
func (u *RevisionUnit) Validate() error {
	return validateUnit(u.name, u.llmClient, u.config)
}

// Params returns the generation parameters used for every revision call.
func (u *RevisionUnit) Params() ports.GenerationParams {
	params := u.config.params()
	params.Format = ports.ResponseFormatText
	return params
}

// Revise returns draft rewritten to apply corrections.
func (u *RevisionUnit) Revise(ctx context.Context, subject string, topic domain.Topic, draft string, corrections []domain.Correction) (string, error) {
	if len(corrections) == 0 {
		return "", fmt.Errorf("unit %s: %s: %w", u.name, topic.Label, ErrNoCorrections)
	}

	prompt, err := u.prompts.RevisionPrompt(subject, topic, draft, corrections)
	if err != nil {
		return "", fmt.Errorf("unit %s: failed to build revision prompt for %s: %w", u.name, topic.Label, err)
	}

	ctx = llm.WithOperation(ctx, OperationRevise)
	response, err := u.llmClient.Complete(ctx, prompt, u.Params())
	if err != nil {
		return "", fmt.Errorf("unit %s: revision of %s failed: %w", u.name, topic.Label, err)
	}

	return cleanOutput(u.name, response)
}
