package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/domain"
)

func newTestPipeline(t *testing.T, d *fakeDrafter, c *fakeCritic, r *fakeReviser, opts ...PipelineOption) (*Pipeline, *recordingSleeper) {
	t.Helper()
	p, err := NewPipeline(d, c, r, opts...)
	require.NoError(t, err)
	sleeper := &recordingSleeper{}
	p.sleep = sleeper.sleep
	return p, sleeper
}

func section(t *testing.T, report *domain.Report, topic domain.Topic) domain.Section {
	t.Helper()
	for _, s := range report.Sections {
		if s.Topic == topic {
			return s
		}
	}
	t.Fatalf("no section for %s", topic.Label)
	return domain.Section{}
}

func TestPipeline_ShortCircuitsOnAllGood(t *testing.T) {
	critic := &fakeCritic{fn: allGood}
	reviser := &fakeReviser{}
	observer := &recordingObserver{}
	p, _ := newTestPipeline(t, &fakeDrafter{}, critic, reviser, WithObserver(observer))

	report, err := p.Run(context.Background(), "  Apple ")

	require.NoError(t, err)
	assert.Equal(t, "Apple", report.Subject)
	assert.Equal(t, 1, critic.Calls())
	assert.Zero(t, reviser.Total())
	assert.Zero(t, report.Cycles)
	assert.Equal(t, int64(1), report.Retries)
	assert.Empty(t, report.Unavailable())
	assert.Equal(t, []string{"drafting", "critiquing"}, observer.startedStages())
}

func TestPipeline_CycleBound(t *testing.T) {
	critic := &fakeCritic{fn: alwaysCorrect("History")}
	reviser := &fakeReviser{}
	observer := &recordingObserver{}
	p, _ := newTestPipeline(t, &fakeDrafter{}, critic, reviser, WithObserver(observer))

	report, err := p.Run(context.Background(), "Apple")

	require.NoError(t, err)
	assert.Equal(t, DefaultMaxCycles, critic.Calls(), "exactly three critiques")
	assert.Equal(t, DefaultMaxCycles, reviser.CallsFor("History"))
	assert.Equal(t, DefaultMaxCycles, report.Cycles)

	history := section(t, report, domain.TopicHistory)
	assert.Equal(t, "revised(revised(revised(draft of History)))", history.Text)
	assert.Equal(t, 3, history.Revisions)

	assert.Equal(t, []string{
		"drafting",
		"critiquing", "revising",
		"critiquing", "revising",
		"critiquing", "revising",
	}, observer.startedStages())
}

func TestPipeline_CustomCycleBound(t *testing.T) {
	critic := &fakeCritic{fn: alwaysCorrect("Customers")}
	reviser := &fakeReviser{}
	p, _ := newTestPipeline(t, &fakeDrafter{}, critic, reviser, WithMaxCycles(1))

	report, err := p.Run(context.Background(), "Apple")

	require.NoError(t, err)
	assert.Equal(t, 1, critic.Calls())
	assert.Equal(t, 1, report.Cycles)
}

func TestPipeline_DraftBarrier(t *testing.T) {
	drafter := &fakeDrafter{
		delay: func(topic domain.Topic) time.Duration {
			return time.Duration(9-topic.Code) * 5 * time.Millisecond
		},
		fail: map[string]error{"Customers": errors.New("draft failed")},
	}
	var finishedAtCritique int32
	critic := &fakeCritic{fn: func(call int, drafts map[domain.Topic]string) (domain.CritiqueResult, error) {
		finishedAtCritique = drafter.finished.Load()
		return domain.AllGood(), nil
	}}
	p, _ := newTestPipeline(t, drafter, critic, &fakeReviser{})

	_, err := p.Run(context.Background(), "Apple")

	require.NoError(t, err)
	assert.Equal(t, int32(domain.DefaultTopics().Len()), finishedAtCritique,
		"every draft task, failed or not, returns before the critique starts")
	assert.Len(t, critic.seen[0], domain.DefaultTopics().Len()-1)
}

func TestPipeline_ConcurrencyLimit(t *testing.T) {
	drafter := &fakeDrafter{delay: func(domain.Topic) time.Duration { return 10 * time.Millisecond }}
	p, _ := newTestPipeline(t, drafter, &fakeCritic{fn: allGood}, &fakeReviser{}, WithMaxConcurrency(3))

	_, err := p.Run(context.Background(), "Apple")

	require.NoError(t, err)
	assert.LessOrEqual(t, drafter.maxInFlight.Load(), int32(3))
	assert.Greater(t, drafter.maxInFlight.Load(), int32(1), "drafts run concurrently")
}

func TestPipeline_MergeIsolation(t *testing.T) {
	labels := domain.DefaultTopics().Labels()
	critic := &fakeCritic{fn: func(call int, _ map[domain.Topic]string) (domain.CritiqueResult, error) {
		if call == 1 {
			return correctionsFor(labels...), nil
		}
		return domain.AllGood(), nil
	}}
	reviser := &fakeReviser{delay: func(topic domain.Topic) time.Duration {
		return time.Duration(topic.Code%3) * 3 * time.Millisecond
	}}
	p, _ := newTestPipeline(t, &fakeDrafter{}, critic, reviser)

	report, err := p.Run(context.Background(), "Apple")

	require.NoError(t, err)
	for _, s := range report.Sections {
		assert.Equal(t, "revised(draft of "+s.Topic.Label+")", s.Text)
		assert.Equal(t, 1, s.Revisions)
	}
}

func TestPipeline_SectionsFollowTopicOrder(t *testing.T) {
	drafter := &fakeDrafter{delay: func(topic domain.Topic) time.Duration {
		return time.Duration(9-topic.Code) * 2 * time.Millisecond
	}}
	p, _ := newTestPipeline(t, drafter, &fakeCritic{fn: allGood}, &fakeReviser{})

	report, err := p.Run(context.Background(), "Apple")

	require.NoError(t, err)
	got := make([]string, len(report.Sections))
	for i, s := range report.Sections {
		got[i] = s.Topic.Label
	}
	assert.Equal(t, domain.DefaultTopics().Labels(), got)
}

func TestPipeline_MalformedThenValidCritique(t *testing.T) {
	critic := &fakeCritic{fn: func(call int, _ map[domain.Topic]string) (domain.CritiqueResult, error) {
		switch call {
		case 1:
			return domain.Malformed("Sure! Here are my notes."), nil
		case 2:
			return correctionsFor("History"), nil
		default:
			return domain.AllGood(), nil
		}
	}}
	reviser := &fakeReviser{}
	p, sleeper := newTestPipeline(t, &fakeDrafter{}, critic, reviser)

	report, err := p.Run(context.Background(), "Apple")

	require.NoError(t, err)
	assert.Equal(t, 3, critic.Calls())
	assert.Equal(t, 1, reviser.CallsFor("History"))
	assert.Equal(t, int64(3), report.Retries)
	assert.Equal(t, []time.Duration{DefaultValidityDelay}, sleeper.Sleeps())
}

func TestPipeline_MalformedCeilingIsFatal(t *testing.T) {
	critic := &fakeCritic{fn: func(int, map[domain.Topic]string) (domain.CritiqueResult, error) {
		return domain.Malformed("nope"), nil
	}}
	p, _ := newTestPipeline(t, &fakeDrafter{}, critic, &fakeReviser{},
		WithValidityPolicy(ValidityPolicy{MaxAttempts: 4, Delay: time.Second}))

	report, err := p.Run(context.Background(), "Apple")

	assert.Nil(t, report)
	require.ErrorIs(t, err, ErrMalformedOutputCeiling)
	var malformed *MalformedOutputError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 4, malformed.Attempts)
	assert.Equal(t, 4, critic.Calls())
}

func TestPipeline_CritiqueErrorAbortsRun(t *testing.T) {
	boom := errors.New("quota retries exceeded")
	critic := &fakeCritic{fn: func(int, map[domain.Topic]string) (domain.CritiqueResult, error) {
		return domain.CritiqueResult{}, boom
	}}
	reviser := &fakeReviser{}
	p, _ := newTestPipeline(t, &fakeDrafter{}, critic, reviser)

	report, err := p.Run(context.Background(), "Apple")

	assert.Nil(t, report)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "critique cycle 1")
	assert.Zero(t, reviser.Total())
}

func TestPipeline_DraftFailureDegrades(t *testing.T) {
	draftErr := errors.New("server error")
	drafter := &fakeDrafter{fail: map[string]error{"Customers": draftErr}}
	critic := &fakeCritic{fn: func(call int, _ map[domain.Topic]string) (domain.CritiqueResult, error) {
		if call == 1 {
			return correctionsFor("Customers", "History"), nil
		}
		return domain.AllGood(), nil
	}}
	reviser := &fakeReviser{}
	p, _ := newTestPipeline(t, drafter, critic, reviser)

	report, err := p.Run(context.Background(), "Apple")

	require.NoError(t, err)
	assert.Equal(t, []domain.Topic{domain.TopicCustomers}, report.Unavailable())

	customers := section(t, report, domain.TopicCustomers)
	assert.Empty(t, customers.Text)
	assert.ErrorIs(t, customers.Err, draftErr)
	var topicErr *domain.TopicError
	require.ErrorAs(t, customers.Err, &topicErr)
	assert.Equal(t, "draft", topicErr.Operation)

	assert.Zero(t, reviser.CallsFor("Customers"), "a topic without a draft is never revised")
	assert.Equal(t, 1, reviser.CallsFor("History"))
}

func TestPipeline_AllDraftsFail(t *testing.T) {
	fail := make(map[string]error)
	for _, label := range domain.DefaultTopics().Labels() {
		fail[label] = errors.New("permission denied")
	}
	critic := &fakeCritic{fn: allGood}
	p, _ := newTestPipeline(t, &fakeDrafter{fail: fail}, critic, &fakeReviser{})

	report, err := p.Run(context.Background(), "Apple")

	require.NoError(t, err)
	assert.Zero(t, critic.Calls())
	assert.Len(t, report.Unavailable(), domain.DefaultTopics().Len())
	assert.Zero(t, report.Retries)
}

func TestPipeline_RevisionFailureKeepsDraft(t *testing.T) {
	revErr := errors.New("content policy")
	critic := &fakeCritic{fn: func(call int, _ map[domain.Topic]string) (domain.CritiqueResult, error) {
		if call == 1 {
			return correctionsFor("History", "Customers"), nil
		}
		return domain.AllGood(), nil
	}}
	reviser := &fakeReviser{fail: map[string]error{"History": revErr}}
	p, _ := newTestPipeline(t, &fakeDrafter{}, critic, reviser)

	report, err := p.Run(context.Background(), "Apple")

	require.NoError(t, err)
	history := section(t, report, domain.TopicHistory)
	assert.True(t, history.Available())
	assert.Equal(t, "draft of History", history.Text)
	assert.ErrorIs(t, history.RevisionErr, revErr)
	assert.Zero(t, history.Revisions)

	customers := section(t, report, domain.TopicCustomers)
	assert.Equal(t, "revised(draft of Customers)", customers.Text)
	assert.NoError(t, customers.RevisionErr)
}

func TestPipeline_InvalidPayloadRevisited(t *testing.T) {
	critic := &fakeCritic{fn: func(call int, _ map[domain.Topic]string) (domain.CritiqueResult, error) {
		switch call {
		case 1:
			return domain.CorrectionsResult(
				map[string][]domain.Correction{"Customers": {{Original: "A", Corrected: "B"}}},
				map[string]string{"History": `"fine"`},
			), nil
		case 2:
			return correctionsFor("History"), nil
		default:
			return domain.AllGood(), nil
		}
	}}
	reviser := &fakeReviser{}
	p, _ := newTestPipeline(t, &fakeDrafter{}, critic, reviser)

	report, err := p.Run(context.Background(), "Apple")

	require.NoError(t, err)
	history := section(t, report, domain.TopicHistory)
	assert.Equal(t, 1, history.Skipped)
	assert.Equal(t, 1, history.Revisions, "skipped topic is revised in the next cycle")
	assert.Contains(t, critic.seen[1], domain.TopicHistory, "the critic always sees every draft")
	assert.Equal(t, 2, report.Cycles)
}

func TestPipeline_OnlyInvalidPayloadsStillCountACycle(t *testing.T) {
	critic := &fakeCritic{fn: func(int, map[domain.Topic]string) (domain.CritiqueResult, error) {
		return domain.CorrectionsResult(nil, map[string]string{"History": "{}"}), nil
	}}
	reviser := &fakeReviser{}
	p, _ := newTestPipeline(t, &fakeDrafter{}, critic, reviser)

	report, err := p.Run(context.Background(), "Apple")

	require.NoError(t, err)
	assert.Equal(t, DefaultMaxCycles, report.Cycles)
	assert.Zero(t, reviser.Total())
	assert.Equal(t, DefaultMaxCycles, section(t, report, domain.TopicHistory).Skipped)
}

func TestPipeline_ResolvesLooseLabels(t *testing.T) {
	critic := &fakeCritic{fn: func(call int, _ map[domain.Topic]string) (domain.CritiqueResult, error) {
		if call == 1 {
			return correctionsFor("history", "Revenue  breakdown", "Stock Driver", "Weather"), nil
		}
		return domain.AllGood(), nil
	}}
	reviser := &fakeReviser{}
	p, _ := newTestPipeline(t, &fakeDrafter{}, critic, reviser)

	_, err := p.Run(context.Background(), "Apple")

	require.NoError(t, err)
	assert.Equal(t, 1, reviser.CallsFor("History"))
	assert.Equal(t, 1, reviser.CallsFor("Revenue Breakdown"))
	assert.Equal(t, 1, reviser.CallsFor("Stock Drivers"))
	assert.Equal(t, 3, reviser.Total(), "unknown labels are ignored")
}

func TestPipeline_EmptySubject(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeDrafter{}, &fakeCritic{fn: allGood}, &fakeReviser{})

	_, err := p.Run(context.Background(), "   ")

	assert.ErrorIs(t, err, domain.ErrEmptySubject)
}

func TestPipeline_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	critic := &fakeCritic{fn: allGood}
	p, _ := newTestPipeline(t, &fakeDrafter{}, critic, &fakeReviser{})

	_, err := p.Run(ctx, "Apple")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, critic.Calls())
}

func TestPipeline_CustomTopics(t *testing.T) {
	topics := domain.MustTopicSet(
		domain.Topic{Label: "Moat", Code: 2},
		domain.Topic{Label: "Management", Code: 1},
	)
	p, _ := newTestPipeline(t, &fakeDrafter{}, &fakeCritic{fn: allGood}, &fakeReviser{}, WithTopics(topics))

	report, err := p.Run(context.Background(), "Apple")

	require.NoError(t, err)
	require.Len(t, report.Sections, 2)
	assert.Equal(t, "Management", report.Sections[0].Topic.Label)
	assert.Equal(t, "draft of Moat", report.Sections[1].Text)
}

type invalidUnit struct{ fakeDrafter }

func (*invalidUnit) Validate() error { return errors.New("model is not configured") }

func TestNewPipeline_Validation(t *testing.T) {
	tests := []struct {
		name    string
		build   func() (*Pipeline, error)
		wantErr error
	}{
		{
			name: "nil critic",
			build: func() (*Pipeline, error) {
				return NewPipeline(&fakeDrafter{}, nil, &fakeReviser{})
			},
			wantErr: domain.ErrInvalidConfiguration,
		},
		{
			name: "zero cycles",
			build: func() (*Pipeline, error) {
				return NewPipeline(&fakeDrafter{}, &fakeCritic{}, &fakeReviser{}, WithMaxCycles(0))
			},
			wantErr: domain.ErrInvalidConfiguration,
		},
		{
			name: "zero concurrency",
			build: func() (*Pipeline, error) {
				return NewPipeline(&fakeDrafter{}, &fakeCritic{}, &fakeReviser{}, WithMaxConcurrency(0))
			},
			wantErr: domain.ErrInvalidConfiguration,
		},
		{
			name: "empty topic set",
			build: func() (*Pipeline, error) {
				return NewPipeline(&fakeDrafter{}, &fakeCritic{}, &fakeReviser{}, WithTopics(domain.TopicSet{}))
			},
			wantErr: domain.ErrInvalidTopicSet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.build()
			assert.Nil(t, p)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("unit validation", func(t *testing.T) {
		_, err := NewPipeline(&invalidUnit{}, &fakeCritic{}, &fakeReviser{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model is not configured")
	})
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "init", StageInit.String())
	assert.Equal(t, "drafting", StageDrafting.String())
	assert.Equal(t, "critiquing", StageCritiquing.String())
	assert.Equal(t, "revising", StageRevising.String())
	assert.Equal(t, "done", StageDone.String())
	assert.Equal(t, "unknown", Stage(42).String())
}
