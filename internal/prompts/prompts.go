// Package prompts renders the text sent to the model for each pipeline task
// from text/template templates.
package prompts

import (
	"fmt"
	"maps"
	"strings"
	"text/template"
	"time"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/domain"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/ports"
)

var _ ports.PromptBuilder = (*Builder)(nil)

// DateLayout formats today's date in prompts.
const DateLayout = "January 2, 2006"

// defaultHints lists the points each reference topic should cover, keyed
// by topic label.
var defaultHints = map[string][]string{
	domain.TopicHistory.Label: {
		"business model evolution",
		"founding year, location, and founders",
		"early products or services",
		"major funding rounds or IPO",
		"acquisitions, partnerships, or divestitures",
		"strategic pivots or rebrandings",
		"recent milestones such as a new CEO or geographic expansion",
	},
	domain.TopicProductsIndustry.Label: {
		"core offerings and adjacent R&D projects",
		`industry classification (e.g. "semiconductors")`,
		"total addressable market with sources",
		"segment growth rates",
		"emerging trends shaping the market",
	},
	domain.TopicRevenueBreakdown.Label: {
		"revenue per major product or service",
		"revenue by region (Americas, EMEA, APAC)",
		"year-over-year shifts in those percentages",
		"recurring versus one-time revenue mix",
		"seasonality or quarter-to-quarter patterns",
		"effect of recent launches on the mix",
	},
	domain.TopicCustomers.Label: {
		"customer segments and distribution channels",
		"key accounts and their impact",
		"recent wins or losses",
		"satisfaction, retention, and churn metrics",
		"acquisition cost and lifetime value",
	},
	domain.TopicCompetitiveLandscape.Label: {
		"direct and indirect competitors",
		"feature, price, and distribution comparisons",
		"moats or differentiators",
		"competitors' vulnerabilities",
		"recent competitor moves such as M&A or new products",
		"disruption risks from startups or substitutes",
	},
	domain.TopicFinancialPerformance.Label: {
		"revenue growth trends",
		"gross and net margins",
		"cash flow dynamics",
		"debt ratios",
	},
	domain.TopicStockDrivers.Label: {
		"upcoming product or roadmap milestones",
		"macro trends such as interest rates and consumer spending",
		"analyst estimate revisions or consensus targets",
		"catalysts such as earnings beats or partnerships",
		"capital allocation through buybacks or dividends",
		"regulatory or geopolitical tailwinds",
	},
	domain.TopicInvestmentRisks.Label: {
		"competitive pressure or price wars",
		"supply-chain or cost headwinds",
		"regulatory, legal, or antitrust scrutiny",
		"currency or geopolitical exposure",
		"execution risks on new initiatives",
		"valuation or sentiment shifts",
	},
}

// Builder implements ports.PromptBuilder. It is safe for concurrent use.
type Builder struct {
	draft    *template.Template
	critique *template.Template
	revision *template.Template
	hints    map[string][]string
	now      func() time.Time
}

// Option configures a Builder.
type Option func(*options)

type options struct {
	draft, critique, revision string
	hints                     map[string][]string
	now                       func() time.Time
}

// WithHints adds or replaces topic hints, keyed by topic label.
func WithHints(hints map[string][]string) Option {
	return func(o *options) { maps.Copy(o.hints, hints) }
}

// WithClock sets the source of today's date.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTemplates replaces the default templates. Empty strings keep the
// default for that task.
func WithTemplates(draft, critique, revision string) Option {
	return func(o *options) {
		if draft != "" {
			o.draft = draft
		}
		if critique != "" {
			o.critique = critique
		}
		if revision != "" {
			o.revision = revision
		}
	}
}

// New parses the templates and returns a Builder.
func New(opts ...Option) (*Builder, error) {
	o := options{
		draft:    draftTemplate,
		critique: critiqueTemplate,
		revision: revisionTemplate,
		hints:    maps.Clone(defaultHints),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Builder{hints: o.hints, now: o.now}
	var err error
	if b.draft, err = parse("draft", o.draft); err != nil {
		return nil, err
	}
	if b.critique, err = parse("critique", o.critique); err != nil {
		return nil, err
	}
	if b.revision, err = parse("revision", o.revision); err != nil {
		return nil, err
	}
	return b, nil
}

func parse(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(FuncMap()).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	return tmpl, nil
}

type draftData struct {
	Subject string
	Topic   string
	Today   string
	Hints   []string
}

type critiqueData struct {
	Subject string
	Today   string
	Drafts  []domain.Entry
}

type revisionData struct {
	Subject     string
	Topic       string
	Draft       string
	Corrections []domain.Correction
}

// DraftPrompt returns the prompt for drafting topic about subject.
func (b *Builder) DraftPrompt(subject string, topic domain.Topic) (string, error) {
	return execute(b.draft, draftData{
		Subject: subject,
		Topic:   topic.Label,
		Today:   b.today(),
		Hints:   b.hints[topic.Label],
	})
}

// CritiquePrompt returns the batched fact-checking prompt for drafts.
func (b *Builder) CritiquePrompt(subject string, drafts []domain.Entry) (string, error) {
	if len(drafts) == 0 {
		return "", fmt.Errorf("critique prompt needs at least one draft")
	}
	return execute(b.critique, critiqueData{
		Subject: subject,
		Today:   b.today(),
		Drafts:  drafts,
	})
}

// RevisionPrompt returns the prompt that applies corrections to draft.
func (b *Builder) RevisionPrompt(subject string, topic domain.Topic, draft string, corrections []domain.Correction) (string, error) {
	return execute(b.revision, revisionData{
		Subject:     subject,
		Topic:       topic.Label,
		Draft:       draft,
		Corrections: corrections,
	})
}

func (b *Builder) today() string { return b.now().Format(DateLayout) }

func execute(tmpl *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", tmpl.Name(), err)
	}
	return sb.String(), nil
}
