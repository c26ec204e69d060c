package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	mem "progresskit/adapters/memory"
	"progresskit/core"
)

// fixedClock returns a settable clock for deterministic streak tests.
func fixedClock(start time.Time) (Clock, func(time.Time)) {
	current := start
	return func() time.Time { return current }, func(t time.Time) { current = t }
}

func newTestService(t *testing.T, start time.Time) (*ProgressService, *mem.Store, func(time.Time)) {
	t.Helper()
	store := mem.New()
	bus := NewEventBus(DispatchSync)
	clock, advance := fixedClock(start)
	svc := NewProgressService(store, bus, DefaultRules(), WithClock(clock))
	return svc, store, advance
}

func TestRecordQuizCompletionFlow(t *testing.T) {
	start := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc, store, _ := newTestService(t, start)
	ctx := context.Background()

	unlocked := 0
	svc.Subscribe(core.EventAchievementUnlocked, func(ctx context.Context, e core.Event) { unlocked++ })
	credited := 0
	svc.Subscribe(core.EventPointsCredited, func(ctx context.Context, e core.Event) { credited++ })

	res, err := svc.RecordQuizCompletion(ctx, "Alice ", core.QuizCompletion{
		ScorePercent:    85,
		PointsEarned:    20,
		DurationSeconds: 300,
		Subject:         "mathematics",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Progress.QuizzesCompleted != 1 || res.Progress.Streak.CurrentStreak != 1 {
		t.Fatalf("progress = %+v", res.Progress)
	}
	if len(res.Unlocks) == 0 {
		t.Fatal("expected first_quiz unlock")
	}
	if unlocked != len(res.Unlocks) || credited != 1 {
		t.Fatalf("events: unlocked=%d credited=%d", unlocked, credited)
	}

	// learner id was normalized, state persisted under "alice"
	p, err := svc.GetProgress(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if p.QuizzesCompleted != 1 {
		t.Fatalf("persisted progress = %+v", p)
	}

	txs := store.Transactions("alice")
	if len(txs) == 0 || txs[0].Type != core.TxQuizCompletion || txs[0].Status != core.StatusCompleted {
		t.Fatalf("transactions = %+v", txs)
	}
	foundBonus := false
	for _, tx := range txs {
		if tx.Type == core.TxAchievementBonus {
			foundBonus = true
		}
	}
	if !foundBonus {
		t.Fatal("achievement bonus transaction missing")
	}
}

func TestRecordDocumentUploadLogsBonusTransactions(t *testing.T) {
	start := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc, store, _ := newTestService(t, start)
	ctx := context.Background()

	res, err := svc.RecordDocumentUpload(ctx, "dana")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Unlocks) == 0 || res.Unlocks[0].Code != core.AchievementFirstDocument {
		t.Fatalf("unlocks = %+v", res.Unlocks)
	}
	bonus := res.Unlocks[0].BonusPoints
	if bonus <= 0 {
		t.Fatalf("first_document bonus = %d", bonus)
	}
	if res.Progress.Ledger.TotalEarned != bonus {
		t.Fatalf("earned = %d, want %d", res.Progress.Ledger.TotalEarned, bonus)
	}

	// every point the ledger earned must have a matching log entry
	txs := store.Transactions("dana")
	var logged int64
	for _, tx := range txs {
		if tx.Type != core.TxAchievementBonus {
			t.Fatalf("unexpected transaction type %q", tx.Type)
		}
		if tx.Status != core.StatusCompleted || tx.PointsEarned == nil {
			t.Fatalf("bonus tx = %+v", tx)
		}
		logged += *tx.PointsEarned
	}
	if logged != bonus {
		t.Fatalf("logged bonus points = %d, want %d", logged, bonus)
	}
}

func TestStreakAcrossInjectedDays(t *testing.T) {
	start := time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)
	svc, _, advance := newTestService(t, start)
	ctx := context.Background()

	for d := 0; d < 7; d++ {
		advance(start.AddDate(0, 0, d))
		if _, err := svc.RecordQuizCompletion(ctx, "bob", core.QuizCompletion{ScorePercent: 70, PointsEarned: 5}); err != nil {
			t.Fatal(err)
		}
	}
	p, _ := svc.GetProgress(ctx, "bob")
	if p.Streak.CurrentStreak != 7 {
		t.Fatalf("streak = %d, want 7", p.Streak.CurrentStreak)
	}
	if !p.HasAchievement(core.AchievementWeekWarrior) {
		t.Fatalf("week_warrior not unlocked: %v", p.Unlocked)
	}

	// two idle days reset the streak
	advance(start.AddDate(0, 0, 9))
	if _, err := svc.RecordDocumentUpload(ctx, "bob"); err != nil {
		t.Fatal(err)
	}
	p, _ = svc.GetProgress(ctx, "bob")
	if p.Streak.CurrentStreak != 1 || p.Streak.BestStreak != 7 {
		t.Fatalf("streak = %d best = %d", p.Streak.CurrentStreak, p.Streak.BestStreak)
	}
}

func TestUsePointsPropagatesTypedErrors(t *testing.T) {
	start := time.Now().UTC()
	svc, _, _ := newTestService(t, start)
	ctx := context.Background()

	if _, err := svc.RecordQuizCompletion(ctx, "carol", core.QuizCompletion{ScorePercent: 50, PointsEarned: 40}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UsePoints(ctx, "carol", -5); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("err = %v", err)
	}
	if _, err := svc.UsePoints(ctx, "carol", 1_000_000); !errors.Is(err, core.ErrInsufficientPoints) {
		t.Fatalf("err = %v", err)
	}

	// failed calls must not reach storage
	before, _ := svc.GetProgress(ctx, "carol")
	p, err := svc.UsePoints(ctx, "carol", 10)
	if err != nil {
		t.Fatal(err)
	}
	if p.Ledger.Available() != before.Ledger.Available()-10 {
		t.Fatalf("available = %d", p.Ledger.Available())
	}
}

func TestApplyDiscountDebitsQuotedPoints(t *testing.T) {
	start := time.Now().UTC()
	store := mem.New()
	bus := NewEventBus(DispatchSync)
	clock, _ := fixedClock(start)
	svc := NewProgressService(store, bus, nil,
		WithClock(clock),
		WithDiscountPolicy(core.DiscountPolicy{MaxPointsUsable: 1000, PointsToDiscountRatio: 0.01, MaxDiscountPercent: 50}),
	)
	ctx := context.Background()

	// seed 3000 points with no rules so no bonuses interfere
	if _, err := svc.RecordQuizCompletion(ctx, "dave", core.QuizCompletion{ScorePercent: 90, PointsEarned: 3000}); err != nil {
		t.Fatal(err)
	}

	quote, err := svc.ApplyDiscount(ctx, "dave", 100)
	if err != nil {
		t.Fatal(err)
	}
	if quote.PointsUsed != 1000 || quote.DiscountPercent != 10 || quote.DiscountAmount != 10 || quote.FinalPrice != 90 {
		t.Fatalf("quote = %+v", quote)
	}

	p, _ := svc.GetProgress(ctx, "dave")
	if p.Ledger.Available() != 2000 {
		t.Fatalf("available = %d, want 2000", p.Ledger.Available())
	}

	txs := store.Transactions("dave")
	last := txs[len(txs)-1]
	if last.Type != core.TxCourseDiscount || last.PaymentMethod != core.PayPoints {
		t.Fatalf("discount tx = %+v", last)
	}
	if last.PointsUsed == nil || *last.PointsUsed != 1000 {
		t.Fatalf("discount tx points_used = %v", last.PointsUsed)
	}
}

func TestQuoteDiscountHasNoSideEffects(t *testing.T) {
	start := time.Now().UTC()
	svc, _, _ := newTestService(t, start)
	ctx := context.Background()

	if _, err := svc.RecordQuizCompletion(ctx, "erin", core.QuizCompletion{ScorePercent: 90, PointsEarned: 500}); err != nil {
		t.Fatal(err)
	}
	before, _ := svc.GetProgress(ctx, "erin")
	if _, err := svc.QuoteDiscount(ctx, "erin", 50); err != nil {
		t.Fatal(err)
	}
	after, _ := svc.GetProgress(ctx, "erin")
	if before.Ledger != after.Ledger {
		t.Fatalf("quote mutated ledger: %+v -> %+v", before.Ledger, after.Ledger)
	}
}

func TestCounterOnlyMethods(t *testing.T) {
	svc, _, _ := newTestService(t, time.Now().UTC())
	ctx := context.Background()

	if err := svc.RecordQuizGeneration(ctx, "frank"); err != nil {
		t.Fatal(err)
	}
	if err := svc.RecordCourseView(ctx, "frank"); err != nil {
		t.Fatal(err)
	}
	if err := svc.RecordCoursePurchase(ctx, "frank"); err != nil {
		t.Fatal(err)
	}
	p, _ := svc.GetProgress(ctx, "frank")
	if p.QuizzesGenerated != 1 || p.CoursesViewed != 1 || p.CoursesPurchased != 1 {
		t.Fatalf("counters = %+v", p)
	}
	if p.Streak.CurrentStreak != 0 {
		t.Fatalf("streak mutated: %+v", p.Streak)
	}
}

func TestGetAnalysis(t *testing.T) {
	svc, _, _ := newTestService(t, time.Now().UTC())
	ctx := context.Background()

	for _, q := range []core.QuizCompletion{
		{ScorePercent: 95, PointsEarned: 10, Subject: "physics"},
		{ScorePercent: 40, PointsEarned: 5, Subject: "latin"},
	} {
		if _, err := svc.RecordQuizCompletion(ctx, "gina", q); err != nil {
			t.Fatal(err)
		}
	}
	a, err := svc.GetAnalysis(ctx, "gina")
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Strengths) != 1 || a.Strengths[0].Subject != "physics" {
		t.Fatalf("strengths = %+v", a.Strengths)
	}
	if len(a.Weaknesses) != 1 || a.Weaknesses[0].Subject != "latin" {
		t.Fatalf("weaknesses = %+v", a.Weaknesses)
	}
}
