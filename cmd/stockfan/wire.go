package main

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/time/rate"

	"github.com/alexleeyt8888/StockFanAI-Bot/infrastructure/llm"
	"github.com/alexleeyt8888/StockFanAI-Bot/infrastructure/units"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/application"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/ports"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/prompts"
)

var errMissingAPIKey = errors.New("missing API key")

// deps are the process-level collaborators shared by both model roles.
type deps struct {
	getenv   func(string) string
	callLog  ports.CallLogger
	metrics  ports.MetricsCollector
	observer ports.PipelineObserver
}

// buildPipeline assembles the model clients, units, and pipeline described
// by cfg. The reviser shares the drafter's client.
func buildPipeline(cfg application.Config, d deps) (*application.Pipeline, error) {
	topics, err := cfg.TopicSet()
	if err != nil {
		return nil, err
	}

	drafterClient, err := newRoleClient("drafter", cfg.Drafter, cfg, d)
	if err != nil {
		return nil, err
	}
	criticClient, err := newRoleClient("critic", cfg.Critic, cfg, d)
	if err != nil {
		return nil, err
	}

	builder, err := prompts.New(prompts.WithHints(cfg.TopicHints()))
	if err != nil {
		return nil, err
	}

	drafter, err := units.NewDraftUnit("drafter", drafterClient, builder, units.DraftConfig{
		SamplingConfig: units.SamplingConfig{Temperature: cfg.Sampling.DraftTemperature},
		WebSearch:      cfg.Drafter.SearchEnabled(),
	})
	if err != nil {
		return nil, err
	}
	critic, err := units.NewCritiqueUnit("critic", criticClient, builder, units.CritiqueConfig{
		SamplingConfig: units.SamplingConfig{Temperature: cfg.Sampling.CritiqueTemperature},
	})
	if err != nil {
		return nil, err
	}
	reviser, err := units.NewRevisionUnit("reviser", drafterClient, builder, units.RevisionConfig{
		SamplingConfig: units.SamplingConfig{Temperature: cfg.Sampling.RevisionTemperature},
	})
	if err != nil {
		return nil, err
	}

	opts := []application.PipelineOption{
		application.WithTopics(topics),
		application.WithMaxCycles(cfg.Pipeline.MaxCycles),
		application.WithMaxConcurrency(cfg.Pipeline.MaxConcurrency),
		application.WithValidityPolicy(cfg.Validity),
		application.WithLabelSimilarity(cfg.Pipeline.LabelSimilarity),
	}
	if d.observer != nil {
		opts = append(opts, application.WithObserver(d.observer))
	}
	return application.NewPipeline(drafter, critic, reviser, opts...)
}

// newRoleClient builds the client for one model role. The middleware order
// puts tracing and metrics outermost so they see quota waits, and the call
// log innermost so it records each successful provider response once.
func newRoleClient(role string, rc application.RoleConfig, cfg application.Config, d deps) (*llm.Client, error) {
	keyEnv := rc.KeyEnv()
	key := d.getenv(keyEnv)
	if key == "" {
		return nil, fmt.Errorf("%s (%s): %w: set %s", role, rc.Provider, errMissingAPIKey, keyEnv)
	}

	mw := []llm.Middleware{
		llm.TracingMiddleware(serviceName),
		llm.MetricsMiddleware(rc.Provider, d.metrics),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(math.Max(1, math.Ceil(cfg.RequestsPerSecond)))
		mw = append(mw, llm.RateLimitMiddleware(rate.Limit(cfg.RequestsPerSecond), burst))
	}
	mw = append(mw, llm.QuotaRetryMiddleware(llm.QuotaPolicy{
		MaxAttempts:  cfg.Quota.MaxAttempts,
		DefaultDelay: cfg.Quota.DefaultDelay,
	}))
	if d.callLog != nil {
		mw = append(mw, llm.CallLogMiddleware(d.callLog))
	}
	if cfg.AttemptTimeout > 0 {
		mw = append(mw, llm.AttemptTimeoutMiddleware(cfg.AttemptTimeout))
	}

	client, err := llm.NewClient(rc.Provider, llm.ClientConfig{
		APIKey:     key,
		Model:      rc.Model,
		BaseURL:    rc.BaseURL,
		Middleware: mw,
	})
	if err != nil {
		return nil, fmt.Errorf("%s client: %w", role, err)
	}
	return client, nil
}
