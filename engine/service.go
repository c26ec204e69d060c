package engine

import (
	"context"
	"fmt"
	"time"

	"progresskit/core"
)

// ProgressService wires storage, event bus, and achievement rules into a
// cohesive API. Each method follows the same shape: load the aggregate,
// mutate it, validate and append the generated transaction, save (the commit
// boundary), then publish events.
type ProgressService struct {
	storage  Storage
	bus      *EventBus
	rules    core.RuleSet
	discount core.DiscountPolicy
	analysis core.AnalysisThresholds
	now      Clock
}

// ServiceOption configures a ProgressService.
type ServiceOption func(*ProgressService)

// WithClock overrides the time source (defaults to time.Now).
func WithClock(c Clock) ServiceOption {
	return func(s *ProgressService) {
		if c != nil {
			s.now = c
		}
	}
}

// WithDiscountPolicy sets the point-to-discount conversion policy.
func WithDiscountPolicy(p core.DiscountPolicy) ServiceOption {
	return func(s *ProgressService) { s.discount = p }
}

// WithAnalysisThresholds sets the strength/weakness split.
func WithAnalysisThresholds(t core.AnalysisThresholds) ServiceOption {
	return func(s *ProgressService) { s.analysis = t }
}

func NewProgressService(storage Storage, bus *EventBus, rules core.RuleSet, opts ...ServiceOption) *ProgressService {
	if storage == nil || bus == nil {
		panic("NewProgressService requires non-nil storage and bus")
	}
	s := &ProgressService{
		storage:  storage,
		bus:      bus,
		rules:    rules,
		discount: core.DefaultDiscountPolicy(),
		analysis: core.DefaultAnalysisThresholds(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultRules returns the standard rule set with default thresholds.
func DefaultRules() core.RuleSet {
	return core.DefaultRules(core.AchievementThresholds{})
}

// Subscribe convenience method.
func (s *ProgressService) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

func (s *ProgressService) Publish(ctx context.Context, ev core.Event) {
	s.bus.Publish(ctx, ev)
}

func (s *ProgressService) Close() { s.bus.Close() }

// RecordResult reports the outcome of one recorded learning event.
type RecordResult struct {
	Progress *core.Progress `json:"progress"`
	Unlocks  []core.Unlock  `json:"unlocks,omitempty"`
}

// RecordQuizCompletion applies a completed quiz to the learner's aggregate,
// commits a quiz_completion transaction, and publishes the resulting events.
func (s *ProgressService) RecordQuizCompletion(ctx context.Context, learner core.LearnerID, qc core.QuizCompletion) (*RecordResult, error) {
	learner, err := core.NormalizeLearnerID(learner)
	if err != nil {
		return nil, err
	}
	p, err := s.storage.LoadProgress(ctx, learner)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	now := s.now()
	prevStreak := p.Streak.CurrentStreak
	unlocks := p.RecordQuizCompletion(now, qc, s.rules)

	tx := core.NewTransaction(learner, core.TxQuizCompletion, now)
	if qc.PointsEarned > 0 {
		tx.PointsEarned = core.Int64Ptr(qc.PointsEarned)
	}
	if err := s.commit(ctx, p, complete(tx)); err != nil {
		return nil, err
	}
	if err := s.appendBonusTransactions(ctx, learner, now, unlocks); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, core.NewQuizCompleted(now, learner, qc.ScorePercent, qc.Subject))
	if qc.PointsEarned > 0 {
		s.bus.Publish(ctx, core.NewPointsCredited(now, learner, qc.PointsEarned, p.Ledger.Available()))
	}
	if p.Streak.CurrentStreak > prevStreak {
		s.bus.Publish(ctx, core.NewStreakExtended(now, learner, p.Streak.CurrentStreak))
	}
	s.publishUnlocks(ctx, now, learner, unlocks)

	return &RecordResult{Progress: p, Unlocks: unlocks}, nil
}

// RecordDocumentUpload counts an uploaded document as learning activity and
// re-evaluates achievements. The upload itself earns no points, but any
// unlock bonus it triggers is recorded in the transaction log.
func (s *ProgressService) RecordDocumentUpload(ctx context.Context, learner core.LearnerID) (*RecordResult, error) {
	learner, err := core.NormalizeLearnerID(learner)
	if err != nil {
		return nil, err
	}
	p, err := s.storage.LoadProgress(ctx, learner)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	now := s.now()
	prevStreak := p.Streak.CurrentStreak
	unlocks := p.RecordDocumentUpload(now, s.rules)
	if err := s.storage.SaveProgress(ctx, p); err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}
	if err := s.appendBonusTransactions(ctx, learner, now, unlocks); err != nil {
		return nil, err
	}

	if p.Streak.CurrentStreak > prevStreak {
		s.bus.Publish(ctx, core.NewStreakExtended(now, learner, p.Streak.CurrentStreak))
	}
	s.publishUnlocks(ctx, now, learner, unlocks)
	return &RecordResult{Progress: p, Unlocks: unlocks}, nil
}

// RecordQuizGeneration increments the generation counter only.
func (s *ProgressService) RecordQuizGeneration(ctx context.Context, learner core.LearnerID) error {
	return s.counterOnly(ctx, learner, (*core.Progress).RecordQuizGeneration)
}

// RecordCourseView increments the view counter only.
func (s *ProgressService) RecordCourseView(ctx context.Context, learner core.LearnerID) error {
	return s.counterOnly(ctx, learner, (*core.Progress).RecordCourseView)
}

// RecordCoursePurchase increments the purchase counter only.
func (s *ProgressService) RecordCoursePurchase(ctx context.Context, learner core.LearnerID) error {
	return s.counterOnly(ctx, learner, (*core.Progress).RecordCoursePurchase)
}

func (s *ProgressService) counterOnly(ctx context.Context, learner core.LearnerID, record func(*core.Progress, time.Time)) error {
	learner, err := core.NormalizeLearnerID(learner)
	if err != nil {
		return err
	}
	p, err := s.storage.LoadProgress(ctx, learner)
	if err != nil {
		return fmt.Errorf("load progress: %w", err)
	}
	record(p, s.now())
	if err := s.storage.SaveProgress(ctx, p); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// UsePoints debits amount from the learner's balance, committing a debit
// transaction. ErrInvalidAmount and ErrInsufficientPoints propagate unchanged.
func (s *ProgressService) UsePoints(ctx context.Context, learner core.LearnerID, amount int64) (*core.Progress, error) {
	learner, err := core.NormalizeLearnerID(learner)
	if err != nil {
		return nil, err
	}
	p, err := s.storage.LoadProgress(ctx, learner)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	now := s.now()
	if err := p.UsePoints(now, amount); err != nil {
		return nil, err
	}
	tx := core.NewTransaction(learner, core.TxDebit, now)
	tx.PointsUsed = core.Int64Ptr(amount)
	if err := s.commit(ctx, p, complete(tx)); err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, core.NewPointsDebited(now, learner, amount, p.Ledger.Available()))
	return p, nil
}

// QuoteDiscount converts the learner's available balance into a bounded
// discount for coursePrice without spending anything.
func (s *ProgressService) QuoteDiscount(ctx context.Context, learner core.LearnerID, coursePrice float64) (core.DiscountQuote, error) {
	learner, err := core.NormalizeLearnerID(learner)
	if err != nil {
		return core.DiscountQuote{}, err
	}
	p, err := s.storage.LoadProgress(ctx, learner)
	if err != nil {
		return core.DiscountQuote{}, fmt.Errorf("load progress: %w", err)
	}
	return core.CalculateDiscount(p.Ledger.Available(), coursePrice, s.discount), nil
}

// ApplyDiscount spends points for a discount on coursePrice: the quoted
// points are debited and a course_discount transaction is committed.
func (s *ProgressService) ApplyDiscount(ctx context.Context, learner core.LearnerID, coursePrice float64) (core.DiscountQuote, error) {
	learner, err := core.NormalizeLearnerID(learner)
	if err != nil {
		return core.DiscountQuote{}, err
	}
	p, err := s.storage.LoadProgress(ctx, learner)
	if err != nil {
		return core.DiscountQuote{}, fmt.Errorf("load progress: %w", err)
	}

	now := s.now()
	quote := core.CalculateDiscount(p.Ledger.Available(), coursePrice, s.discount)
	if quote.PointsUsed > 0 {
		if err := p.UsePoints(now, quote.PointsUsed); err != nil {
			return core.DiscountQuote{}, err
		}
	}

	tx := core.NewTransaction(learner, core.TxCourseDiscount, now)
	tx.PaymentMethod = core.PayPoints
	tx.Amount = coursePrice
	if quote.PointsUsed > 0 {
		tx.PointsUsed = core.Int64Ptr(quote.PointsUsed)
	}
	tx.DiscountAmount = core.Float64Ptr(quote.DiscountAmount)
	if err := s.commit(ctx, p, complete(tx)); err != nil {
		return core.DiscountQuote{}, err
	}
	if quote.PointsUsed > 0 {
		s.bus.Publish(ctx, core.NewPointsDebited(now, learner, quote.PointsUsed, p.Ledger.Available()))
	}
	return quote, nil
}

// GetProgress returns the learner's current aggregate snapshot.
func (s *ProgressService) GetProgress(ctx context.Context, learner core.LearnerID) (*core.Progress, error) {
	learner, err := core.NormalizeLearnerID(learner)
	if err != nil {
		return nil, err
	}
	return s.storage.LoadProgress(ctx, learner)
}

// GetAnalysis returns the learner's subject strengths and weaknesses.
func (s *ProgressService) GetAnalysis(ctx context.Context, learner core.LearnerID) (core.Analysis, error) {
	p, err := s.GetProgress(ctx, learner)
	if err != nil {
		return core.Analysis{}, err
	}
	return p.Performance.Analyze(s.analysis), nil
}

// commit validates the transaction, appends it, and saves the aggregate.
// A transaction that fails consistency validation rejects the whole call
// before anything is persisted.
func (s *ProgressService) commit(ctx context.Context, p *core.Progress, tx core.Transaction) error {
	if err := tx.ValidateConsistency(); err != nil {
		return err
	}
	if err := s.storage.AppendTransaction(ctx, tx); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	if err := s.storage.SaveProgress(ctx, p); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// appendBonusTransactions records an achievement_bonus transaction for every
// unlock that credited points, keeping the log in step with the ledger.
func (s *ProgressService) appendBonusTransactions(ctx context.Context, learner core.LearnerID, at time.Time, unlocks []core.Unlock) error {
	for _, u := range unlocks {
		if u.BonusPoints <= 0 {
			continue
		}
		bonus := core.NewTransaction(learner, core.TxAchievementBonus, at)
		bonus.PointsEarned = core.Int64Ptr(u.BonusPoints)
		if err := s.storage.AppendTransaction(ctx, complete(bonus)); err != nil {
			return fmt.Errorf("append bonus transaction: %w", err)
		}
	}
	return nil
}

func (s *ProgressService) publishUnlocks(ctx context.Context, at time.Time, learner core.LearnerID, unlocks []core.Unlock) {
	for _, u := range unlocks {
		s.bus.Publish(ctx, core.NewAchievementUnlocked(at, learner, u.Code, u.BonusPoints))
	}
}

func complete(tx core.Transaction) core.Transaction {
	if tx.Status.CanTransitionTo(core.StatusCompleted) {
		tx.Status = core.StatusCompleted
	}
	return tx
}
