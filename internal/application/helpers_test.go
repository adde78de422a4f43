package application

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/domain"
)

// fakeDrafter drafts "draft of <label>" after an optional per-topic delay.
type fakeDrafter struct {
	fail  map[string]error
	delay func(domain.Topic) time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	finished    atomic.Int32
}

func (d *fakeDrafter) Name() string    { return "fake-drafter" }
func (d *fakeDrafter) Validate() error { return nil }

func (d *fakeDrafter) Draft(ctx context.Context, subject string, topic domain.Topic) (string, error) {
	n := d.inFlight.Add(1)
	for {
		prev := d.maxInFlight.Load()
		if n <= prev || d.maxInFlight.CompareAndSwap(prev, n) {
			break
		}
	}
	defer func() {
		d.inFlight.Add(-1)
		d.finished.Add(1)
	}()

	if d.delay != nil {
		time.Sleep(d.delay(topic))
	}
	if err := d.fail[topic.Label]; err != nil {
		return "", err
	}
	return "draft of " + topic.Label, nil
}

// fakeCritic delegates to fn, passing the 1-based call number and a copy of
// the drafts it was given.
type fakeCritic struct {
	fn func(call int, drafts map[domain.Topic]string) (domain.CritiqueResult, error)

	mu    sync.Mutex
	calls int
	seen  []map[domain.Topic]string
}

func (c *fakeCritic) Name() string    { return "fake-critic" }
func (c *fakeCritic) Validate() error { return nil }

func (c *fakeCritic) Critique(ctx context.Context, subject string, topics domain.TopicSet, drafts *domain.WorkingSet) (domain.CritiqueResult, error) {
	snapshot := drafts.Snapshot()

	c.mu.Lock()
	c.calls++
	call := c.calls
	c.seen = append(c.seen, snapshot)
	c.mu.Unlock()

	return c.fn(call, snapshot)
}

func (c *fakeCritic) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// fakeReviser returns "revised(<draft>)" unless the topic is set to fail.
type fakeReviser struct {
	fail  map[string]error
	delay func(domain.Topic) time.Duration

	mu    sync.Mutex
	calls map[string]int
}

func (r *fakeReviser) Name() string    { return "fake-reviser" }
func (r *fakeReviser) Validate() error { return nil }

func (r *fakeReviser) Revise(ctx context.Context, subject string, topic domain.Topic, draft string, corrections []domain.Correction) (string, error) {
	r.mu.Lock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[topic.Label]++
	r.mu.Unlock()

	if r.delay != nil {
		time.Sleep(r.delay(topic))
	}
	if err := r.fail[topic.Label]; err != nil {
		return "", err
	}
	return fmt.Sprintf("revised(%s)", draft), nil
}

func (r *fakeReviser) CallsFor(label string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[label]
}

func (r *fakeReviser) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.calls {
		total += n
	}
	return total
}

// recordingSleeper records requested waits without sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.sleeps...)
}

// stageEvent is one observer callback.
type stageEvent struct {
	started bool
	stage   string
	cycle   int
	err     error
}

type recordingObserver struct {
	mu     sync.Mutex
	events []stageEvent
}

func (o *recordingObserver) StageStarted(ctx context.Context, subject, stage string, cycle int) context.Context {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, stageEvent{started: true, stage: stage, cycle: cycle})
	return ctx
}

func (o *recordingObserver) StageFinished(ctx context.Context, subject, stage string, cycle int, elapsed time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, stageEvent{stage: stage, cycle: cycle, err: err})
}

// startedStages returns the stages entered, in order.
func (o *recordingObserver) startedStages() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var stages []string
	for _, e := range o.events {
		if e.started {
			stages = append(stages, e.stage)
		}
	}
	return stages
}

func correctionsFor(labels ...string) domain.CritiqueResult {
	corrections := make(map[string][]domain.Correction, len(labels))
	for _, label := range labels {
		corrections[label] = []domain.Correction{{Original: "X", Corrected: "Y", Reasoning: "Z"}}
	}
	return domain.CorrectionsResult(corrections, nil)
}

func alwaysCorrect(labels ...string) func(int, map[domain.Topic]string) (domain.CritiqueResult, error) {
	return func(int, map[domain.Topic]string) (domain.CritiqueResult, error) {
		return correctionsFor(labels...), nil
	}
}

func allGood(int, map[domain.Topic]string) (domain.CritiqueResult, error) {
	return domain.AllGood(), nil
}
