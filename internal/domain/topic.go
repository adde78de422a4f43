// Package domain contains pure, dependency-free domain models and types
// for the report pipeline.
package domain

import (
	"fmt"
	"sort"
)

// Topic identifies one fixed section of a report. A Topic is an immutable
// value: its Label is the stable display name used in prompts and critique
// payloads, and its Code is the ordering key.
type Topic struct {
	Label string
	Code  int
}

// String returns the topic label.
func (t Topic) String() string { return t.Label }

// TopicSet is a fixed, ordered sequence of topics. The order of a TopicSet is
// the enumeration order used for printing; it is established explicitly at
// construction and never derived from declaration order.
type TopicSet struct {
	topics  []Topic
	byLabel map[string]Topic
}

// NewTopicSet validates the given topics and returns them as a TopicSet sorted
// by Code. Labels and codes must be unique and labels non-empty.
func NewTopicSet(topics ...Topic) (TopicSet, error) {
	if len(topics) == 0 {
		return TopicSet{}, fmt.Errorf("%w: at least one topic is required", ErrInvalidTopicSet)
	}

	verr := NewValidationError("topic set")
	byLabel := make(map[string]Topic, len(topics))
	codes := make(map[int]string, len(topics))
	for _, t := range topics {
		if t.Label == "" {
			verr.AddError(fmt.Sprintf("topic with code %d has an empty label", t.Code))
			continue
		}
		if _, dup := byLabel[t.Label]; dup {
			verr.AddError(fmt.Sprintf("duplicate label %q", t.Label))
			continue
		}
		if other, dup := codes[t.Code]; dup {
			verr.AddError(fmt.Sprintf("code %d used by both %q and %q", t.Code, other, t.Label))
			continue
		}
		byLabel[t.Label] = t
		codes[t.Code] = t.Label
	}
	if verr.HasErrors() {
		return TopicSet{}, fmt.Errorf("%w: %v", ErrInvalidTopicSet, verr)
	}

	ordered := make([]Topic, len(topics))
	copy(ordered, topics)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Code < ordered[j].Code })

	return TopicSet{topics: ordered, byLabel: byLabel}, nil
}

// MustTopicSet is like NewTopicSet but panics on invalid input. It is meant
// for package-level topic definitions.
func MustTopicSet(topics ...Topic) TopicSet {
	ts, err := NewTopicSet(topics...)
	if err != nil {
		panic(err)
	}
	return ts
}

// Topics returns a copy of the topics in enumeration order.
func (ts TopicSet) Topics() []Topic {
	out := make([]Topic, len(ts.topics))
	copy(out, ts.topics)
	return out
}

// Len returns the number of topics in the set.
func (ts TopicSet) Len() int { return len(ts.topics) }

// Lookup returns the topic with exactly the given label.
func (ts TopicSet) Lookup(label string) (Topic, bool) {
	t, ok := ts.byLabel[label]
	return t, ok
}

// Labels returns the topic labels in enumeration order.
func (ts TopicSet) Labels() []string {
	labels := make([]string, len(ts.topics))
	for i, t := range ts.topics {
		labels[i] = t.Label
	}
	return labels
}

// The reference report topics.
var (
	TopicHistory              = Topic{Label: "History", Code: 1}
	TopicProductsIndustry     = Topic{Label: "Products, Industry & Market Size", Code: 2}
	TopicRevenueBreakdown     = Topic{Label: "Revenue Breakdown", Code: 3}
	TopicCustomers            = Topic{Label: "Customers", Code: 4}
	TopicCompetitiveLandscape = Topic{Label: "Competitive Landscape", Code: 5}
	TopicFinancialPerformance = Topic{Label: "Financial Performance", Code: 6}
	TopicStockDrivers         = Topic{Label: "Stock Drivers", Code: 7}
	TopicInvestmentRisks      = Topic{Label: "Investment Risks", Code: 8}
)

// DefaultTopics returns the eight topics of a company analysis report.
func DefaultTopics() TopicSet {
	return MustTopicSet(
		TopicHistory,
		TopicProductsIndustry,
		TopicRevenueBreakdown,
		TopicCustomers,
		TopicCompetitiveLandscape,
		TopicFinancialPerformance,
		TopicStockDrivers,
		TopicInvestmentRisks,
	)
}
