package leaderboard

import (
	"context"
	"testing"

	mem "progresskit/adapters/memory"
	"progresskit/core"
	"progresskit/engine"
)

func TestSkipListBasic(t *testing.T) {
	s := NewSkipList()
	s.Update(core.LearnerID("a"), 10)
	s.Update(core.LearnerID("b"), 20)
	s.Update(core.LearnerID("c"), 15)
	top := s.TopN(3)
	if len(top) != 3 || top[0].Learner != core.LearnerID("b") || top[1].Learner != core.LearnerID("c") || top[2].Learner != core.LearnerID("a") {
		t.Fatalf("unexpected order: %#v", top)
	}
	s.Update(core.LearnerID("a"), 25)
	top = s.TopN(1)
	if top[0].Learner != core.LearnerID("a") {
		t.Fatalf("top should be a, got %#v", top)
	}
}

func TestSkipListRemove(t *testing.T) {
	s := NewSkipList()
	s.Update(core.LearnerID("a"), 10)
	s.Update(core.LearnerID("b"), 20)
	s.Remove(core.LearnerID("b"))
	if _, ok := s.Get(core.LearnerID("b")); ok {
		t.Fatal("b should be gone")
	}
	top := s.TopN(5)
	if len(top) != 1 || top[0].Learner != core.LearnerID("a") {
		t.Fatalf("unexpected board: %#v", top)
	}
}

func TestTrackFollowsEarnedPoints(t *testing.T) {
	storage := mem.New()
	bus := engine.NewEventBus(engine.DispatchSync)
	svc := engine.NewProgressService(storage, bus, core.RuleSet{})
	board := NewSkipList()
	unsub := Track(svc, board)
	defer unsub()

	ctx := context.Background()
	if _, err := svc.RecordQuizCompletion(ctx, "alice", core.QuizCompletion{PointsEarned: 30}); err != nil {
		t.Fatalf("record quiz: %v", err)
	}
	if _, err := svc.RecordQuizCompletion(ctx, "bob", core.QuizCompletion{PointsEarned: 50}); err != nil {
		t.Fatalf("record quiz: %v", err)
	}

	top := board.TopN(2)
	if len(top) != 2 || top[0].Learner != core.LearnerID("bob") || top[0].Points != 50 {
		t.Fatalf("unexpected board: %#v", top)
	}

	// debit does not change lifetime earned ranking
	if _, err := svc.UsePoints(ctx, "bob", 40); err != nil {
		t.Fatalf("use points: %v", err)
	}
	e, ok := board.Get(core.LearnerID("bob"))
	if !ok || e.Points != 50 {
		t.Fatalf("expected lifetime earned 50, got %#v", e)
	}
}
