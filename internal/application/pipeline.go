package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/domain"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/ports"
)

// Default pipeline bounds.
const (
	DefaultMaxCycles      = 3
	DefaultMaxConcurrency = 8
)

// Stage is a state of the revision cycle controller.
type Stage int

// Controller stages, in the order a run visits them. Critiquing and
// revising repeat until the cycle bound is reached.
const (
	StageInit Stage = iota
	StageDrafting
	StageCritiquing
	StageRevising
	StageDone
)

// String returns the lower-case stage name.
func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StageDrafting:
		return "drafting"
	case StageCritiquing:
		return "critiquing"
	case StageRevising:
		return "revising"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Pipeline drafts every topic concurrently, then alternates a single
// batched critique with concurrent revisions until the critic is satisfied
// or the cycle bound is reached. A Pipeline holds no per-run state and may
// run several subjects concurrently.
type Pipeline struct {
	topics  domain.TopicSet
	drafter ports.Drafter
	critic  ports.Critic
	reviser ports.Reviser

	observer       ports.PipelineObserver
	maxCycles      int
	maxConcurrency int
	validity       ValidityPolicy
	similarity     float64

	sleep Sleeper
	now   func() time.Time
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithTopics replaces the default topic set.
func WithTopics(topics domain.TopicSet) PipelineOption {
	return func(p *Pipeline) { p.topics = topics }
}

// WithMaxCycles sets the number of critique and revise rounds.
func WithMaxCycles(n int) PipelineOption {
	return func(p *Pipeline) { p.maxCycles = n }
}

// WithMaxConcurrency caps the in-flight draft and revision tasks.
func WithMaxConcurrency(n int) PipelineOption {
	return func(p *Pipeline) { p.maxConcurrency = n }
}

// WithValidityPolicy sets the retry policy for unparsable critiques.
func WithValidityPolicy(policy ValidityPolicy) PipelineOption {
	return func(p *Pipeline) { p.validity = policy }
}

// WithObserver reports stage transitions to o.
func WithObserver(o ports.PipelineObserver) PipelineOption {
	return func(p *Pipeline) { p.observer = o }
}

// WithLabelSimilarity sets the minimum similarity for fuzzy critic labels.
func WithLabelSimilarity(threshold float64) PipelineOption {
	return func(p *Pipeline) { p.similarity = threshold }
}

// NewPipeline creates a Pipeline from its three tasks. Each task is
// validated before the pipeline is returned.
func NewPipeline(drafter ports.Drafter, critic ports.Critic, reviser ports.Reviser, opts ...PipelineOption) (*Pipeline, error) {
	if drafter == nil || critic == nil || reviser == nil {
		return nil, fmt.Errorf("%w: drafter, critic, and reviser are required", domain.ErrInvalidConfiguration)
	}

	p := &Pipeline{
		topics:         domain.DefaultTopics(),
		drafter:        drafter,
		critic:         critic,
		reviser:        reviser,
		observer:       noopObserver{},
		maxCycles:      DefaultMaxCycles,
		maxConcurrency: DefaultMaxConcurrency,
		validity:       DefaultValidityPolicy(),
		similarity:     DefaultLabelSimilarity,
		sleep:          contextSleep,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.maxCycles < 1 {
		return nil, fmt.Errorf("%w: max cycles must be at least 1, got %d", domain.ErrInvalidConfiguration, p.maxCycles)
	}
	if p.maxConcurrency < 1 {
		return nil, fmt.Errorf("%w: max concurrency must be at least 1, got %d", domain.ErrInvalidConfiguration, p.maxConcurrency)
	}
	if p.topics.Len() == 0 {
		return nil, fmt.Errorf("%w: no topics", domain.ErrInvalidTopicSet)
	}
	if p.observer == nil {
		p.observer = noopObserver{}
	}

	for _, u := range []ports.Unit{drafter, critic, reviser} {
		if err := u.Validate(); err != nil {
			return nil, fmt.Errorf("unit %s: %w", u.Name(), err)
		}
	}
	return p, nil
}

// Topics returns the topics the pipeline reports on.
func (p *Pipeline) Topics() domain.TopicSet { return p.topics }

// run is the mutable state of a single subject.
type run struct {
	subject string
	drafts  *domain.WorkingSet
	retries RetryCounter
	cycles  int

	mu           sync.Mutex
	draftErrs    map[domain.Topic]error
	revisions    map[domain.Topic]int
	revisionErrs map[domain.Topic]error
	skipped      map[domain.Topic]int
}

func newRun(subject string) *run {
	return &run{
		subject:      subject,
		drafts:       domain.NewWorkingSet(),
		draftErrs:    make(map[domain.Topic]error),
		revisions:    make(map[domain.Topic]int),
		revisionErrs: make(map[domain.Topic]error),
		skipped:      make(map[domain.Topic]int),
	}
}

// Run produces the report for subject. Draft and revision failures are
// recorded per topic and never abort the run. A critique failure, including
// a *MalformedOutputError, ends the run with an error.
func (p *Pipeline) Run(ctx context.Context, subject string) (*domain.Report, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, domain.ErrEmptySubject
	}

	start := p.now()
	r := newRun(subject)
	slog.InfoContext(ctx, "starting report", "subject", subject, "topics", p.topics.Len())

	if err := p.stage(ctx, r, StageDrafting, 0, p.draftAll); err != nil {
		return nil, err
	}

	if r.drafts.Len() == 0 {
		slog.WarnContext(ctx, "every draft failed, skipping critique", "subject", subject)
		return p.report(r, start), nil
	}

	for r.cycles < p.maxCycles {
		var critique domain.CritiqueResult
		err := p.stage(ctx, r, StageCritiquing, r.cycles, func(ctx context.Context, r *run) error {
			var err error
			critique, err = p.critique(ctx, r)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("critique cycle %d of %s: %w", r.cycles+1, subject, err)
		}

		if critique.Kind == domain.CritiqueAllGood {
			slog.InfoContext(ctx, "critic found nothing to correct",
				"subject", subject,
				"cycle", r.cycles+1)
			break
		}

		plan := p.plan(ctx, r, critique)
		if err := p.stage(ctx, r, StageRevising, r.cycles, func(ctx context.Context, r *run) error {
			return p.reviseAll(ctx, r, plan)
		}); err != nil {
			return nil, err
		}
		r.cycles++
	}

	report := p.report(r, start)
	slog.InfoContext(ctx, "report complete",
		"subject", subject,
		"cycles", r.cycles,
		"retries", report.Retries,
		"unavailable", len(report.Unavailable()),
		"elapsed", report.Elapsed)
	return report, nil
}

// stage runs fn as stage, reporting it to the observer. A done context
// after the stage fails the run even when fn itself succeeded.
func (p *Pipeline) stage(ctx context.Context, r *run, s Stage, cycle int, fn func(context.Context, *run) error) error {
	started := p.now()
	stageCtx := p.observer.StageStarted(ctx, r.subject, s.String(), cycle)
	slog.DebugContext(stageCtx, "entering stage", "subject", r.subject, "stage", s.String(), "cycle", cycle)

	err := fn(stageCtx, r)
	if err == nil {
		err = ctx.Err()
	}
	p.observer.StageFinished(stageCtx, r.subject, s.String(), cycle, p.now().Sub(started), err)
	return err
}

// draftAll drafts every topic with at most maxConcurrency in flight and
// returns once all of them have finished.
func (p *Pipeline) draftAll(ctx context.Context, r *run) error {
	var g errgroup.Group
	g.SetLimit(p.maxConcurrency)

	for _, topic := range p.topics.Topics() {
		g.Go(func() error {
			text, err := p.drafter.Draft(ctx, r.subject, topic)
			if err != nil {
				slog.ErrorContext(ctx, "draft failed",
					"subject", r.subject,
					"topic", topic.Label,
					"error", err)
				r.mu.Lock()
				r.draftErrs[topic] = domain.NewTopicError(topic, "draft", err)
				r.mu.Unlock()
				return nil
			}
			r.drafts.Set(topic, text)
			return nil
		})
	}
	return g.Wait()
}

// critique runs the critic until it produces a parsable result.
func (p *Pipeline) critique(ctx context.Context, r *run) (domain.CritiqueResult, error) {
	op := func(ctx context.Context) (domain.CritiqueResult, error) {
		return p.critic.Critique(ctx, r.subject, p.topics, r.drafts)
	}
	return ensureValid(ctx, p.validity, &r.retries, p.sleep, op, critiqueFailure)
}

// plan maps the critic's labels to topics that have a draft and collects
// their corrections. Unknown labels and invalid payloads are logged and
// skipped; a skipped topic keeps its draft and is critiqued again next
// cycle.
func (p *Pipeline) plan(ctx context.Context, r *run, critique domain.CritiqueResult) map[domain.Topic][]domain.Correction {
	resolver := newLabelResolver(p.topics, p.similarity)
	plan := make(map[domain.Topic][]domain.Correction)

	for _, label := range critique.Labels() {
		topic, ok := resolver.resolve(label)
		if !ok {
			slog.WarnContext(ctx, "ignoring corrections for unknown topic",
				"subject", r.subject,
				"label", label,
				"error", domain.ErrUnknownTopic)
			continue
		}
		if _, ok := r.drafts.Get(topic); !ok {
			slog.WarnContext(ctx, "ignoring corrections for topic without a draft",
				"subject", r.subject,
				"topic", topic.Label)
			continue
		}
		plan[topic] = append(plan[topic], critique.Corrections[label]...)
	}

	invalid := make([]string, 0, len(critique.Invalid))
	for label := range critique.Invalid {
		invalid = append(invalid, label)
	}
	sort.Strings(invalid)
	for _, label := range invalid {
		topic, ok := resolver.resolve(label)
		if !ok {
			continue
		}
		slog.WarnContext(ctx, "skipping topic with invalid corrections payload",
			"subject", r.subject,
			"topic", topic.Label,
			"error", domain.ErrInvalidCorrections)
		r.skipped[topic]++
	}

	return plan
}

// reviseAll applies plan concurrently. Each task writes only its own
// topic, and a failed revision leaves the prior draft in place.
func (p *Pipeline) reviseAll(ctx context.Context, r *run, plan map[domain.Topic][]domain.Correction) error {
	var g errgroup.Group
	g.SetLimit(p.maxConcurrency)

	for _, topic := range p.topics.Topics() {
		corrections, ok := plan[topic]
		if !ok {
			continue
		}
		draft, _ := r.drafts.Get(topic)

		g.Go(func() error {
			text, err := p.reviser.Revise(ctx, r.subject, topic, draft, corrections)

			r.mu.Lock()
			defer r.mu.Unlock()
			if err != nil {
				slog.ErrorContext(ctx, "revision failed, keeping prior draft",
					"subject", r.subject,
					"topic", topic.Label,
					"corrections", len(corrections),
					"error", err)
				r.revisionErrs[topic] = domain.NewTopicError(topic, "revise", err)
				return nil
			}
			r.drafts.Set(topic, text)
			r.revisions[topic]++
			return nil
		})
	}
	return g.Wait()
}

// report assembles the sections in topic order.
func (p *Pipeline) report(r *run, start time.Time) *domain.Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	topics := p.topics.Topics()
	sections := make([]domain.Section, 0, len(topics))
	for _, topic := range topics {
		section := domain.Section{
			Topic:       topic,
			Revisions:   r.revisions[topic],
			RevisionErr: r.revisionErrs[topic],
			Skipped:     r.skipped[topic],
		}
		if text, ok := r.drafts.Get(topic); ok {
			section.Text = text
		} else {
			section.Err = r.draftErrs[topic]
			if section.Err == nil {
				section.Err = errors.New("no draft produced")
			}
		}
		sections = append(sections, section)
	}

	return &domain.Report{
		Subject:  r.subject,
		Sections: sections,
		Cycles:   r.cycles,
		Retries:  r.retries.Load(),
		Elapsed:  p.now().Sub(start),
	}
}

type noopObserver struct{}

func (noopObserver) StageStarted(ctx context.Context, _, _ string, _ int) context.Context {
	return ctx
}

func (noopObserver) StageFinished(context.Context, string, string, int, time.Duration, error) {}
