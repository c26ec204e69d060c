package memory

import (
	"context"
	"sync"

	"progresskit/core"
)

// Store is a concurrent in-memory Storage implementation. Each learner's
// record carries its own mutex, which gives the per-learner serialization the
// aggregate's invariants require.
type Store struct {
	learners sync.Map // map[core.LearnerID]*learnerRecord

	txMu sync.Mutex
	txs  []core.Transaction
}

type learnerRecord struct {
	mu       sync.Mutex
	progress *core.Progress
}

func New() *Store { return &Store{} }

func (s *Store) getOrCreate(learner core.LearnerID) *learnerRecord {
	if v, ok := s.learners.Load(learner); ok {
		return v.(*learnerRecord)
	}
	rec := &learnerRecord{progress: core.NewProgress(learner)}
	actual, _ := s.learners.LoadOrStore(learner, rec)
	return actual.(*learnerRecord)
}

func (s *Store) LoadProgress(_ context.Context, learner core.LearnerID) (*core.Progress, error) {
	rec := s.getOrCreate(learner)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.progress.Clone(), nil
}

func (s *Store) SaveProgress(_ context.Context, p *core.Progress) error {
	rec := s.getOrCreate(p.Learner)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.progress = p.Clone()
	return nil
}

func (s *Store) AppendTransaction(_ context.Context, tx core.Transaction) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.txs = append(s.txs, tx)
	return nil
}

// Transactions returns the learner's transaction records in append order.
func (s *Store) Transactions(learner core.LearnerID) []core.Transaction {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	var out []core.Transaction
	for _, tx := range s.txs {
		if tx.Learner == learner {
			out = append(out, tx)
		}
	}
	return out
}
