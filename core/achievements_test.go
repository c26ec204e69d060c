package core

import (
	"testing"
	"time"
)

func TestAchievementsUnlockAtMostOnce(t *testing.T) {
	rules := DefaultRules(AchievementThresholds{})
	p := NewProgress("alice")
	p.Ledger.TotalEarned = 150

	unlocks := rules.Evaluate(p)
	if len(unlocks) != 1 || unlocks[0].Code != AchievementFirst100Points {
		t.Fatalf("unlocks = %+v", unlocks)
	}

	// condition remains true; re-evaluating must not duplicate
	for i := 0; i < 5; i++ {
		if again := rules.Evaluate(p); len(again) != 0 {
			t.Fatalf("re-evaluation %d produced %+v", i, again)
		}
	}
	if len(p.Unlocked) != 1 {
		t.Fatalf("unlocked = %v", p.Unlocked)
	}
}

func TestAchievementBonusFiresExactlyOnce(t *testing.T) {
	rules := DefaultRules(AchievementThresholds{})
	p := NewProgress("bob")
	p.QuizzesCompleted = 1

	before := p.Ledger.TotalEarned
	unlocks := rules.Evaluate(p)
	if len(unlocks) != 1 {
		t.Fatalf("unlocks = %+v", unlocks)
	}
	bonus := unlocks[0].BonusPoints
	if p.Ledger.TotalEarned != before+bonus {
		t.Fatalf("earned = %d, want %d", p.Ledger.TotalEarned, before+bonus)
	}
	rules.Evaluate(p)
	if p.Ledger.TotalEarned != before+bonus {
		t.Fatalf("bonus granted twice: earned = %d", p.Ledger.TotalEarned)
	}
}

func TestAchievementBonusDoesNotCascadeWithinOnePass(t *testing.T) {
	// 90 earned + the 10-point first_quiz bonus crosses 100, but
	// first_100_points must not unlock until the next evaluation.
	rules := DefaultRules(AchievementThresholds{})
	p := NewProgress("carol")
	p.Ledger.TotalEarned = 90
	p.QuizzesCompleted = 1

	unlocks := rules.Evaluate(p)
	if len(unlocks) != 1 || unlocks[0].Code != AchievementFirstQuiz {
		t.Fatalf("unlocks = %+v", unlocks)
	}
	if p.Ledger.TotalEarned < 100 {
		t.Fatalf("earned = %d, bonus not applied", p.Ledger.TotalEarned)
	}

	next := rules.Evaluate(p)
	if len(next) != 1 || next[0].Code != AchievementFirst100Points {
		t.Fatalf("second pass unlocks = %+v", next)
	}
}

func TestAchievementSinglePassUnlocksAllSatisfied(t *testing.T) {
	rules := DefaultRules(AchievementThresholds{})
	p := NewProgress("dave")
	p.Ledger.TotalEarned = 500
	p.QuizzesCompleted = 12
	p.Streak = Streak{CurrentStreak: 7, BestStreak: 7, LastActivityDate: DateOnly(time.Now())}

	unlocks := rules.Evaluate(p)
	want := map[AchievementCode]bool{
		AchievementFirstQuiz:      true,
		AchievementTenQuizzes:     true,
		AchievementFirst100Points: true,
		AchievementWeekWarrior:    true,
	}
	if len(unlocks) != len(want) {
		t.Fatalf("unlocks = %+v", unlocks)
	}
	for _, u := range unlocks {
		if !want[u.Code] {
			t.Fatalf("unexpected unlock %s", u.Code)
		}
	}
}

func TestAchievementThresholdsAreConfiguration(t *testing.T) {
	rules := DefaultRules(AchievementThresholds{QuizMilestone: 3})
	p := NewProgress("erin")
	p.QuizzesCompleted = 3
	unlocks := rules.Evaluate(p)
	found := false
	for _, u := range unlocks {
		if u.Code == AchievementTenQuizzes {
			found = true
		}
	}
	if !found {
		t.Fatalf("lowered milestone not honored: %+v", unlocks)
	}
}
