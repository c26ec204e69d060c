package progress

import (
	"context"
	"testing"
	"time"

	mem "progresskit/adapters/memory"
	"progresskit/core"
	"progresskit/engine"
	"progresskit/realtime"
)

func TestNewDefaultsAndOptions(t *testing.T) {
	hub := realtime.NewHub()
	svc := New(
		WithRealtime(hub),
		WithStorage(mem.New()),
		WithDispatchMode(engine.DispatchSync),
	)

	// basic operation
	result, err := svc.RecordQuizCompletion(context.Background(), "alice", core.QuizCompletion{
		ScorePercent: 80,
		PointsEarned: 5,
	})
	if err != nil || result.Progress.Ledger.Available() != 5 {
		t.Fatalf("record quiz result=%+v err=%v", result, err)
	}

	// realtime bridge should receive event
	_, ch := hub.Subscribe(1)
	svc.Publish(context.Background(), core.NewPointsCredited(time.Now(), "alice", 5, 10))
	ev := <-ch
	if ev.Learner != "alice" || ev.Type != core.EventPointsCredited {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestInMemoryFallback(t *testing.T) {
	svc := New(WithDispatchMode(engine.DispatchSync))
	if _, err := svc.RecordQuizCompletion(context.Background(), "bob", core.QuizCompletion{PointsEarned: 3}); err != nil {
		t.Fatalf("fallback record quiz: %v", err)
	}
	p, err := svc.GetProgress(context.Background(), "bob")
	if err != nil {
		t.Fatalf("fallback get progress: %v", err)
	}
	if p.Ledger.Available() != 3 {
		t.Fatalf("expected 3 points, got %d", p.Ledger.Available())
	}
	if p.QuizzesCompleted != 1 {
		t.Fatalf("expected 1 quiz, got %d", p.QuizzesCompleted)
	}
}

func TestFallbackIsolation(t *testing.T) {
	svc := New(WithDispatchMode(engine.DispatchSync))
	if _, err := svc.RecordQuizCompletion(context.Background(), "bob", core.QuizCompletion{PointsEarned: 3}); err != nil {
		t.Fatalf("record quiz: %v", err)
	}
	p, _ := svc.GetProgress(context.Background(), "bob")
	p.Ledger.TotalEarned = 999

	again, _ := svc.GetProgress(context.Background(), "bob")
	if again.Ledger.TotalEarned != 3 {
		t.Fatalf("stored progress mutated through returned copy: %d", again.Ledger.TotalEarned)
	}
}
