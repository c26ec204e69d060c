package core

// AchievementRule pairs a code with a boolean predicate over aggregate state.
// Rules are independent of each other; thresholds live in configuration, not
// in the engine.
type AchievementRule struct {
	Code        AchievementCode
	Name        string
	Description string
	// BonusPoints is credited to the ledger exactly once, when the rule
	// first unlocks.
	BonusPoints int64
	Satisfied   func(p *Progress) bool
}

// Unlock reports one newly unlocked achievement.
type Unlock struct {
	Code        AchievementCode `json:"code"`
	Name        string          `json:"name"`
	BonusPoints int64           `json:"bonus_points,omitempty"`
}

// RuleSet evaluates achievement rules against a Progress record.
type RuleSet []AchievementRule

// Evaluate unlocks every rule whose predicate holds and is not already in
// p.Unlocked, in a single pass. All predicates are evaluated against the
// state at entry; bonus credits are applied only after the pass, so a bonus
// cannot cascade-unlock another rule within the same invocation.
func (rs RuleSet) Evaluate(p *Progress) []Unlock {
	var unlocks []Unlock
	for _, r := range rs {
		if p.HasAchievement(r.Code) {
			continue
		}
		if r.Satisfied == nil || !r.Satisfied(p) {
			continue
		}
		unlocks = append(unlocks, Unlock{Code: r.Code, Name: r.Name, BonusPoints: r.BonusPoints})
	}
	for _, u := range unlocks {
		p.Unlocked = append(p.Unlocked, u.Code)
		// bonus grants fire exactly once per rule
		_ = p.Ledger.Credit(u.BonusPoints)
	}
	return unlocks
}

// AchievementThresholds configures the default rule set. Zero values fall
// back to the standard milestones.
type AchievementThresholds struct {
	QuizMilestone   int64   `json:"quiz_milestone"`
	PointsMilestone int64   `json:"points_milestone"`
	StreakWeek      int     `json:"streak_week"`
	StreakMonth     int     `json:"streak_month"`
	HighScore       float64 `json:"high_score"`
}

// DefaultAchievementThresholds returns the standard milestone values.
func DefaultAchievementThresholds() AchievementThresholds {
	return AchievementThresholds{
		QuizMilestone:   10,
		PointsMilestone: 100,
		StreakWeek:      7,
		StreakMonth:     30,
		HighScore:       95,
	}
}

func (t AchievementThresholds) withDefaults() AchievementThresholds {
	d := DefaultAchievementThresholds()
	if t.QuizMilestone <= 0 {
		t.QuizMilestone = d.QuizMilestone
	}
	if t.PointsMilestone <= 0 {
		t.PointsMilestone = d.PointsMilestone
	}
	if t.StreakWeek <= 0 {
		t.StreakWeek = d.StreakWeek
	}
	if t.StreakMonth <= 0 {
		t.StreakMonth = d.StreakMonth
	}
	if t.HighScore <= 0 {
		t.HighScore = d.HighScore
	}
	return t
}

// Default achievement codes.
const (
	AchievementFirstQuiz      AchievementCode = "first_quiz"
	AchievementFirstDocument  AchievementCode = "first_document"
	AchievementTenQuizzes     AchievementCode = "ten_quizzes"
	AchievementFirst100Points AchievementCode = "first_100_points"
	AchievementWeekWarrior    AchievementCode = "week_warrior"
	AchievementMonthMaster    AchievementCode = "month_master"
	AchievementHighScorer     AchievementCode = "high_scorer"
)

// DefaultRules builds the standard rule set from threshold configuration.
func DefaultRules(t AchievementThresholds) RuleSet {
	t = t.withDefaults()
	return RuleSet{
		{
			Code: AchievementFirstQuiz, Name: "First Steps",
			Description: "Complete your first quiz", BonusPoints: 10,
			Satisfied: func(p *Progress) bool { return p.QuizzesCompleted >= 1 },
		},
		{
			Code: AchievementFirstDocument, Name: "Scholar",
			Description: "Upload your first document", BonusPoints: 10,
			Satisfied: func(p *Progress) bool { return p.DocumentsUploaded >= 1 },
		},
		{
			Code: AchievementTenQuizzes, Name: "Quiz Veteran",
			Description: "Complete ten quizzes", BonusPoints: 25,
			Satisfied: func(p *Progress) bool { return p.QuizzesCompleted >= t.QuizMilestone },
		},
		{
			Code: AchievementFirst100Points, Name: "Century",
			Description: "Earn your first hundred points", BonusPoints: 20,
			Satisfied: func(p *Progress) bool { return p.Ledger.TotalEarned >= t.PointsMilestone },
		},
		{
			Code: AchievementWeekWarrior, Name: "Week Warrior",
			Description: "Study seven days in a row", BonusPoints: 50,
			Satisfied: func(p *Progress) bool { return p.Streak.CurrentStreak >= t.StreakWeek },
		},
		{
			Code: AchievementMonthMaster, Name: "Month Master",
			Description: "Study thirty days in a row", BonusPoints: 200,
			Satisfied: func(p *Progress) bool { return p.Streak.CurrentStreak >= t.StreakMonth },
		},
		{
			Code: AchievementHighScorer, Name: "High Scorer",
			Description: "Score at the top of a quiz", BonusPoints: 15,
			Satisfied: func(p *Progress) bool { return p.Performance.BestScore >= t.HighScore },
		},
	}
}
