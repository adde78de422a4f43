package ports

import (
	"context"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/domain"
)

// Unit is the common surface of every model-backed task in the pipeline.
// Units hold no per-run state and are safe for concurrent execution.
type Unit interface {
	// Name returns a unique identifier for this unit.
	// The name is used for logging and as the call log operation name.
	Name() string

	// Validate checks if the unit is properly configured and ready for execution.
	// It is typically called during pipeline construction.
	Validate() error
}

// Drafter produces the initial draft for one topic.
type Drafter interface {
	Unit

	// Draft returns a draft of topic about subject. The context parameter
	// allows for cancellation; drafters should return promptly once it is
	// done.
	Draft(ctx context.Context, subject string, topic domain.Topic) (string, error)
}

// Critic reviews every draft of the working set in a single call.
type Critic interface {
	Unit

	// Critique fact-checks drafts and returns the parsed outcome. Output
	// that cannot be parsed is returned as the malformed variant with a nil
	// error; only model failures produce an error.
	Critique(ctx context.Context, subject string, topics domain.TopicSet, drafts *domain.WorkingSet) (domain.CritiqueResult, error)
}

// Reviser rewrites one draft by applying corrections.
type Reviser interface {
	Unit

	// Revise returns draft with corrections applied.
	Revise(ctx context.Context, subject string, topic domain.Topic, draft string, corrections []domain.Correction) (string, error)
}
