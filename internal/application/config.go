// Package application provides the orchestration of the report pipeline:
// the revision cycle controller, the retry-until-valid combinator, and the
// configuration that wires them.
package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/domain"
)

// Provider names accepted in role configuration.
const (
	ProviderGoogle     = "google"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
)

// DefaultModel is the model used by every role unless configured otherwise.
const DefaultModel = "gemini-2.5-flash"

// DefaultCallLogPath is where model calls are recorded.
const DefaultCallLogPath = "llm_calls.log"

// defaultAPIKeyEnv maps a provider to the environment variable holding its
// credential.
var defaultAPIKeyEnv = map[string]string{
	ProviderGoogle:     "GEMINI_API_KEY",
	ProviderOpenAI:     "OPENAI_API_KEY",
	ProviderOpenRouter: "OPENROUTER_API_KEY",
	ProviderAnthropic:  "ANTHROPIC_API_KEY",
}

// Config is the complete configuration of a report pipeline and the model
// clients it runs on. Load it with LoadConfig or start from DefaultConfig.
type Config struct {
	// Drafter is the model role used for drafting and revising topics.
	Drafter RoleConfig `yaml:"drafter" validate:"required"`
	// Critic is the model role used for the batched critique.
	Critic RoleConfig `yaml:"critic" validate:"required"`
	// Pipeline bounds the revision cycle.
	Pipeline PipelineConfig `yaml:"pipeline"`
	// Validity bounds the retries of unparsable critique output.
	Validity ValidityPolicy `yaml:"validity"`
	// Quota bounds the waits on provider quota exhaustion.
	Quota QuotaConfig `yaml:"quota"`
	// Sampling holds the temperature of each task.
	Sampling SamplingConfig `yaml:"sampling"`
	// RequestsPerSecond paces model calls per role. Zero disables pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0,max=1000"`
	// AttemptTimeout bounds a single model call. Zero leaves calls unbounded.
	AttemptTimeout time.Duration `yaml:"attempt_timeout" validate:"gte=0"`
	// CallLogPath is the append-only model call log.
	CallLogPath string `yaml:"call_log_path" validate:"required"`
	// Topics overrides the report sections. Empty uses the default eight.
	Topics []TopicConfig `yaml:"topics" validate:"omitempty,dive"`
}

// RoleConfig selects the provider and model behind a pipeline role.
type RoleConfig struct {
	Provider string `yaml:"provider" validate:"required,oneof=google openai openrouter anthropic"`
	Model    string `yaml:"model" validate:"required"`
	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url,omitempty" validate:"omitempty,url"`
	// APIKeyEnv names the environment variable holding the credential.
	// Empty selects the provider default.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	// WebSearch enables search grounding for drafts.
	WebSearch *bool `yaml:"web_search,omitempty"`
}

// KeyEnv returns the environment variable that holds the role's API key.
func (r RoleConfig) KeyEnv() string {
	if r.APIKeyEnv != "" {
		return r.APIKeyEnv
	}
	return defaultAPIKeyEnv[r.Provider]
}

// SearchEnabled reports whether drafts should use search grounding. It
// defaults to true.
func (r RoleConfig) SearchEnabled() bool {
	return r.WebSearch == nil || *r.WebSearch
}

// PipelineConfig bounds the revision cycle controller.
type PipelineConfig struct {
	// MaxCycles is the number of critique and revise rounds.
	MaxCycles int `yaml:"max_cycles" validate:"min=1,max=20"`
	// MaxConcurrency caps in-flight draft and revision tasks.
	MaxConcurrency int `yaml:"max_concurrency" validate:"min=1,max=64"`
	// LabelSimilarity is the minimum similarity for matching a critic label
	// to a topic that is not spelled exactly.
	LabelSimilarity float64 `yaml:"label_similarity" validate:"gt=0,lte=1"`
}

// QuotaConfig bounds the waits on provider quota exhaustion.
type QuotaConfig struct {
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts int `yaml:"max_attempts" validate:"min=1,max=20"`
	// DefaultDelay is used when the provider suggests no wait.
	DefaultDelay time.Duration `yaml:"default_delay" validate:"gt=0"`
}

// SamplingConfig holds the temperature of each pipeline task.
type SamplingConfig struct {
	DraftTemperature    float64 `yaml:"draft_temperature" validate:"min=0,max=2"`
	CritiqueTemperature float64 `yaml:"critique_temperature" validate:"min=0,max=2"`
	RevisionTemperature float64 `yaml:"revision_temperature" validate:"min=0,max=2"`
}

// TopicConfig declares one report section.
type TopicConfig struct {
	Label string `yaml:"label" validate:"required,max=100"`
	Code  int    `yaml:"code" validate:"min=1"`
	// Hints are the points the draft prompt asks the model to cover.
	Hints []string `yaml:"hints,omitempty" validate:"omitempty,dive,required"`
}

// DefaultConfig returns the reference configuration: gemini-2.5-flash for
// every role, three cycles, eight concurrent tasks, and temperature 0.2.
func DefaultConfig() Config {
	return Config{
		Drafter:  RoleConfig{Provider: ProviderGoogle, Model: DefaultModel},
		Critic:   RoleConfig{Provider: ProviderGoogle, Model: DefaultModel},
		Pipeline: PipelineConfig{
			MaxCycles:       DefaultMaxCycles,
			MaxConcurrency:  DefaultMaxConcurrency,
			LabelSimilarity: DefaultLabelSimilarity,
		},
		Validity: DefaultValidityPolicy(),
		Quota:    QuotaConfig{MaxAttempts: 3, DefaultDelay: 60 * time.Second},
		Sampling: SamplingConfig{
			DraftTemperature:    0.2,
			CritiqueTemperature: 0.2,
			RevisionTemperature: 0.2,
		},
		CallLogPath: DefaultCallLogPath,
	}
}

// TopicSet returns the configured topics, or the default set when none are
// configured.
func (c Config) TopicSet() (domain.TopicSet, error) {
	if len(c.Topics) == 0 {
		return domain.DefaultTopics(), nil
	}
	topics := make([]domain.Topic, len(c.Topics))
	for i, t := range c.Topics {
		topics[i] = domain.Topic{Label: t.Label, Code: t.Code}
	}
	return domain.NewTopicSet(topics...)
}

// TopicHints returns the configured prompt hints keyed by topic label.
func (c Config) TopicHints() map[string][]string {
	hints := make(map[string][]string)
	for _, t := range c.Topics {
		if len(t.Hints) > 0 {
			hints[t.Label] = t.Hints
		}
	}
	return hints
}

// Validate checks struct constraints and that the topics form a valid set.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	if _, err := c.TopicSet(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	return nil
}

var validate = validator.New()

// LoadConfig reads the YAML configuration at path over DefaultConfig. An
// empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return parseConfig(data)
}

// LoadConfigFromReader reads a YAML configuration from r over DefaultConfig.
func LoadConfigFromReader(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return parseConfig(data)
}

// parseConfig decodes strictly so a misspelt key is an error rather than a
// silently ignored setting.
func parseConfig(data []byte) (Config, error) {
	config := DefaultConfig()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("YAML decode failed: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}
