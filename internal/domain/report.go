package domain

import "time"

// Section is one topic of a finished report.
type Section struct {
	Topic Topic
	// Text is the final draft. Empty when the topic is unavailable.
	Text string
	// Err records why the topic has no draft. Nil for available topics.
	Err error
	// Revisions counts the revisions applied to the topic.
	Revisions int
	// RevisionErr is the most recent failed revision. The section keeps its
	// prior draft when a revision fails.
	RevisionErr error
	// Skipped counts the cycles in which the critic's payload for the topic
	// was not a usable correction list.
	Skipped int
}

// Available reports whether the section has a draft.
func (s Section) Available() bool { return s.Err == nil }

// Report is the final output of one pipeline run.
type Report struct {
	Subject  string
	Sections []Section
	// Cycles is the number of critique and revise rounds completed. A run
	// that ends on an all-good critique ran one more critique than this.
	Cycles int
	// Retries is the number of critique parse attempts made during the run.
	Retries int64
	Elapsed time.Duration
}

// Unavailable returns the topics that have no draft, in report order.
func (r *Report) Unavailable() []Topic {
	var topics []Topic
	for _, s := range r.Sections {
		if !s.Available() {
			topics = append(topics, s.Topic)
		}
	}
	return topics
}
