package leaderboard

import (
	"context"

	"progresskit/core"
	"progresskit/engine"
)

// Entry represents a ranked learner.
type Entry struct {
	Learner core.LearnerID
	Points  int64
}

// Board abstracts leaderboard operations.
type Board interface {
	Update(learner core.LearnerID, points int64)
	Remove(learner core.LearnerID)
	TopN(n int) []Entry
	Get(learner core.LearnerID) (Entry, bool)
}

// Track subscribes the board to balance events so rankings follow lifetime
// earned points. Returns an unsubscribe function.
func Track(svc *engine.ProgressService, board Board) func() {
	update := func(ctx context.Context, e core.Event) {
		p, err := svc.GetProgress(ctx, e.Learner)
		if err != nil {
			return
		}
		board.Update(e.Learner, p.Ledger.TotalEarned)
	}
	unsubCredit := svc.Subscribe(core.EventPointsCredited, update)
	unsubDebit := svc.Subscribe(core.EventPointsDebited, update)
	return func() {
		unsubCredit()
		unsubDebit()
	}
}
