// Package units provides the model-backed tasks of the report pipeline:
// drafting a topic, critiquing every draft in one batched call, and revising
// a draft from corrections. Each unit implements one of the ports task
// interfaces.
package units

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/ports"
)

// Operation names attached to model calls. They appear in the call log,
// metrics, and spans.
const (
	OperationDraft    = "draft"
	OperationCritique = "critique"
	OperationRevise   = "revise"
)

// DefaultTemperature is the low sampling temperature used by every task.
const DefaultTemperature = 0.2

// Common errors returned by units.
var (
	// ErrEmptyUnitName is returned when attempting to create a unit with an empty name.
	ErrEmptyUnitName = errors.New("unit name cannot be empty")

	// ErrLLMClientNil is returned when a unit is built without a model client.
	ErrLLMClientNil = errors.New("LLM client cannot be nil")

	// ErrPromptBuilderNil is returned when a unit is built without prompts.
	ErrPromptBuilderNil = errors.New("prompt builder cannot be nil")

	// ErrEmptyOutput is returned when the model produced only whitespace.
	ErrEmptyOutput = errors.New("model returned empty output")

	// ErrNothingToCritique is returned when the working set has no drafts.
	ErrNothingToCritique = errors.New("no drafts to critique")
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// SamplingConfig holds the generation settings shared by all units.
type SamplingConfig struct {
	// Temperature controls randomness in generation (0.0-2.0).
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0,max=2"`

	// TopP is the optional nucleus-sampling threshold.
	TopP *float64 `yaml:"top_p,omitempty" json:"top_p,omitempty" validate:"omitempty,gt=0,max=1"`

	// TopK optionally limits sampling to the K most likely tokens.
	TopK *int `yaml:"top_k,omitempty" json:"top_k,omitempty" validate:"omitempty,min=1"`

	// MaxTokens caps output length. Zero keeps the provider default.
	MaxTokens int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" validate:"min=0"`
}

// params converts the sampling settings into generation parameters.
func (c SamplingConfig) params() ports.GenerationParams {
	temp := c.Temperature
	return ports.GenerationParams{
		Temperature: &temp,
		TopP:        c.TopP,
		TopK:        c.TopK,
		MaxTokens:   c.MaxTokens,
	}
}

// checkDeps validates the dependencies common to every unit.
func checkDeps(name string, client ports.LLMClient, prompts ports.PromptBuilder) error {
	if name == "" {
		return ErrEmptyUnitName
	}
	if client == nil {
		return ErrLLMClientNil
	}
	if prompts == nil {
		return ErrPromptBuilderNil
	}
	return nil
}

// validateUnit runs the checks shared by every unit's Validate method.
func validateUnit(name string, client ports.LLMClient, config any) error {
	if client == nil {
		return fmt.Errorf("unit %s: LLM client is not configured", name)
	}
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("unit %s: configuration validation failed: %w", name, err)
	}
	if client.GetModel() == "" {
		return fmt.Errorf("unit %s: LLM client model is not configured", name)
	}
	return nil
}

// cleanOutput trims model output and rejects empty text.
func cleanOutput(name, response string) (string, error) {
	text := strings.TrimSpace(response)
	if text == "" {
		return "", fmt.Errorf("unit %s: %w", name, ErrEmptyOutput)
	}
	return text, nil
}
