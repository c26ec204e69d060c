package progress

import (
	"context"
	"sync"

	"progresskit/core"
	"progresskit/engine"
	"progresskit/realtime"
)

// Option configures the progress service builder.
type Option func(*config)

type config struct {
	storage engine.Storage
	mode    engine.DispatchMode
	rules   core.RuleSet
	hub     *realtime.Hub
	svcOpts []engine.ServiceOption
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(c *config) { c.storage = s } }

// WithRules sets the achievement rule set.
func WithRules(r core.RuleSet) Option { return func(c *config) { c.rules = r } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithRealtime wires a realtime hub to receive all service events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithServiceOptions forwards options to the underlying service
// (clock, discount policy, analysis thresholds).
func WithServiceOptions(opts ...engine.ServiceOption) Option {
	return func(c *config) { c.svcOpts = append(c.svcOpts, opts...) }
}

// New builds a configured ProgressService. If not provided, defaults are used:
//   - storage: in-memory
//   - rules: DefaultRules with default thresholds
//   - dispatch: async
func New(opts ...Option) *engine.ProgressService {
	cfg := &config{mode: engine.DispatchAsync, rules: engine.DefaultRules()}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.storage == nil {
		// keep New() usable without picking an adapter; pass explicit storage in prod
		cfg.storage = &memStore{}
	}
	bus := engine.NewEventBus(cfg.mode)
	svc := engine.NewProgressService(cfg.storage, bus, cfg.rules, cfg.svcOpts...)
	if cfg.hub != nil {
		// Bridge all primary events to realtime
		for _, typ := range []core.EventType{
			core.EventPointsCredited,
			core.EventPointsDebited,
			core.EventAchievementUnlocked,
			core.EventStreakExtended,
			core.EventQuizCompleted,
		} {
			bus.Subscribe(typ, func(ctx context.Context, e core.Event) { cfg.hub.Broadcast(ctx, e) })
		}
	}
	return svc
}

// memStore is a minimal memory impl mirroring adapters/memory, inlined so the
// facade package carries no adapter imports.
type memStore struct {
	mu   sync.Mutex
	data map[core.LearnerID]*core.Progress
	txs  map[core.LearnerID][]core.Transaction
}

func (s *memStore) LoadProgress(_ context.Context, learner core.LearnerID) (*core.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.data[learner]; ok {
		return p.Clone(), nil
	}
	return core.NewProgress(learner), nil
}

func (s *memStore) SaveProgress(_ context.Context, p *core.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = map[core.LearnerID]*core.Progress{}
	}
	s.data[p.Learner] = p.Clone()
	return nil
}

func (s *memStore) AppendTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txs == nil {
		s.txs = map[core.LearnerID][]core.Transaction{}
	}
	s.txs[tx.Learner] = append(s.txs[tx.Learner], tx)
	return nil
}
