package engine

import (
	"context"
	"time"

	"progresskit/core"
)

// Storage abstracts persistence for progress aggregates. Implementations must
// serialize access per learner; the aggregate's invariants hold only under
// single-writer execution. SaveProgress is the commit boundary: a mutation
// that never reaches SaveProgress must not become visible.
type Storage interface {
	// LoadProgress returns the learner's aggregate, or a zero-valued one
	// for a learner with no persisted record.
	LoadProgress(ctx context.Context, learner core.LearnerID) (*core.Progress, error)
	SaveProgress(ctx context.Context, p *core.Progress) error
	// AppendTransaction persists the transaction record generated by an
	// earning or spending event, alongside the aggregate snapshot.
	AppendTransaction(ctx context.Context, tx core.Transaction) error
}

// Clock supplies the current time. Injected so streak logic stays
// deterministic under test.
type Clock func() time.Time
