package domain

import (
	"maps"
	"sync"
)

// WorkingSet maps each topic to its current draft. An entry is created when
// the topic's draft completes and is only ever overwritten afterwards, never
// removed. Writers for distinct topics may run concurrently.
type WorkingSet struct {
	mu     sync.RWMutex
	drafts map[Topic]string
}

// NewWorkingSet creates an empty WorkingSet.
func NewWorkingSet() *WorkingSet {
	return &WorkingSet{drafts: make(map[Topic]string)}
}

// Set stores text as the current draft for topic.
func (ws *WorkingSet) Set(topic Topic, text string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.drafts[topic] = text
}

// Get returns the current draft for topic.
func (ws *WorkingSet) Get(topic Topic) (string, bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	text, ok := ws.drafts[topic]
	return text, ok
}

// Len returns the number of topics with a draft.
func (ws *WorkingSet) Len() int {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return len(ws.drafts)
}

// Snapshot returns a copy of the current drafts.
func (ws *WorkingSet) Snapshot() map[Topic]string {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return maps.Clone(ws.drafts)
}

// Entry is a single topic draft.
type Entry struct {
	Topic Topic
	Text  string
}

// Ordered returns the drafts present in the working set following the
// enumeration order of topics. Topics without a draft are omitted.
func (ws *WorkingSet) Ordered(topics TopicSet) []Entry {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	entries := make([]Entry, 0, len(ws.drafts))
	for _, t := range topics.topics {
		if text, ok := ws.drafts[t]; ok {
			entries = append(entries, Entry{Topic: t, Text: text})
		}
	}
	return entries
}
