package units

import (
	"context"
	"fmt"

	"github.com/alexleeyt8888/StockFanAI-Bot/infrastructure/llm"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/domain"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/ports"
)

var _ ports.Drafter = (*DraftUnit)(nil)

// DraftUnit writes the first draft of one topic. It calls the model with a
// low temperature and search grounding so the draft can cite current
// figures. The unit is stateless and thread-safe for concurrent execution.
type DraftUnit struct {
	name      string
	config    DraftConfig
	llmClient ports.LLMClient
	prompts   ports.PromptBuilder
}

// DraftConfig defines the generation settings for drafting.
type DraftConfig struct {
	SamplingConfig `yaml:",inline"`

	// WebSearch enables search grounding for drafts.
	WebSearch bool `yaml:"web_search" json:"web_search"`
}

// DefaultDraftConfig returns the reference drafting settings: temperature
// 0.2 with web search.
func DefaultDraftConfig() DraftConfig {
	return DraftConfig{
		SamplingConfig: SamplingConfig{Temperature: DefaultTemperature},
		WebSearch:      true,
	}
}

// NewDraftUnit creates a DraftUnit. It returns an error if a dependency is
// missing or the configuration is invalid.
func NewDraftUnit(name string, llmClient ports.LLMClient, prompts ports.PromptBuilder, config DraftConfig) (*DraftUnit, error) {
	if err := checkDeps(name, llmClient, prompts); err != nil {
		return nil, err
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &DraftUnit{
		name:      name,
		config:    config,
		llmClient: llmClient,
		prompts:   prompts,
	}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *DraftUnit) Name() string { return u.name }

// Validate checks if the unit is properly configured and ready for execution.
func (u *DraftUnit) Validate() error {
	return validateUnit(u.name, u.llmClient, u.config)
}

// Params returns the generation parameters used for every draft call.
func (u *DraftUnit) Params() ports.GenerationParams {
	params := u.config.params()
	params.Format = ports.ResponseFormatText
	params.WebSearch = u.config.WebSearch
	return params
}

// Draft returns a draft of topic about subject.
func (u *DraftUnit) Draft(ctx context.Context, subject string, topic domain.Topic) (string, error) {
	prompt, err := u.prompts.DraftPrompt(subject, topic)
	if err != nil {
		return "", fmt.Errorf("unit %s: failed to build prompt for %s: %w", u.name, topic.Label, err)
	}

	ctx = llm.WithOperation(ctx, OperationDraft)
	response, err := u.llmClient.Complete(ctx, prompt, u.Params())
	if err != nil {
		return "", fmt.Errorf("unit %s: draft of %s failed: %w", u.name, topic.Label, err)
	}

	return cleanOutput(u.name, response)
}
