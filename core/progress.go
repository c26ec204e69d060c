package core

import (
	"fmt"
	"time"
)

// Progress is the per-learner aggregate: one ledger, one streak, one
// performance record, the unlocked achievement codes, and simple activity
// counters. It is a single-writer structure; all mutation happens through the
// recording methods below and callers persist the result as one commit.
type Progress struct {
	Learner LearnerID `json:"learner"`

	Ledger      Ledger      `json:"ledger"`
	Streak      Streak      `json:"streak"`
	Performance Performance `json:"performance"`

	// Unlocked holds achievement codes in unlock order; a code appears at
	// most once and is never removed.
	Unlocked []AchievementCode `json:"unlocked,omitempty"`

	DocumentsUploaded int64 `json:"documents_uploaded"`
	QuizzesGenerated  int64 `json:"quizzes_generated"`
	QuizzesCompleted  int64 `json:"quizzes_completed"`
	CoursesViewed     int64 `json:"courses_viewed"`
	CoursesPurchased  int64 `json:"courses_purchased"`

	// StudyMinutes accumulates quiz duration, in minutes.
	StudyMinutes float64 `json:"study_minutes"`

	Updated time.Time `json:"updated"`
}

// NewProgress returns a zero-valued aggregate for a new learner account.
func NewProgress(learner LearnerID) *Progress {
	return &Progress{Learner: learner}
}

// Clone returns a deep copy of the aggregate.
func (p *Progress) Clone() *Progress {
	cp := *p
	cp.Unlocked = append([]AchievementCode(nil), p.Unlocked...)
	cp.Performance.Subjects = append([]SubjectStat(nil), p.Performance.Subjects...)
	return &cp
}

// HasAchievement reports whether code has already been unlocked.
func (p *Progress) HasAchievement(code AchievementCode) bool {
	for _, c := range p.Unlocked {
		if c == code {
			return true
		}
	}
	return false
}

// QuizCompletion carries the inputs of one completed quiz.
type QuizCompletion struct {
	ScorePercent    float64
	PointsEarned    int64
	DurationSeconds int64
	Subject         Subject
}

// RecordQuizCompletion applies one completed quiz: counters first, then
// performance, ledger, study time and streak, then achievement re-evaluation.
// Returns achievements newly unlocked by this call.
func (p *Progress) RecordQuizCompletion(today time.Time, qc QuizCompletion, rules RuleSet) []Unlock {
	p.QuizzesCompleted++
	p.Performance.RecordAttempt(qc.ScorePercent, qc.Subject)
	_ = p.Ledger.Credit(qc.PointsEarned)
	p.StudyMinutes += float64(qc.DurationSeconds) / 60
	p.Streak.RecordActivity(today)
	p.touch(today)
	return rules.Evaluate(p)
}

// RecordDocumentUpload counts an uploaded document as learning activity.
func (p *Progress) RecordDocumentUpload(today time.Time, rules RuleSet) []Unlock {
	p.DocumentsUploaded++
	p.Streak.RecordActivity(today)
	p.touch(today)
	return rules.Evaluate(p)
}

// RecordQuizGeneration counts a generated quiz. Generation alone is not
// learning activity, so the streak is untouched.
func (p *Progress) RecordQuizGeneration(today time.Time) {
	p.QuizzesGenerated++
	p.touch(today)
}

// RecordCourseView increments the view counter only.
func (p *Progress) RecordCourseView(today time.Time) {
	p.CoursesViewed++
	p.touch(today)
}

// RecordCoursePurchase increments the purchase counter only.
func (p *Progress) RecordCoursePurchase(today time.Time) {
	p.CoursesPurchased++
	p.touch(today)
}

// UsePoints debits amount from the ledger, propagating ErrInvalidAmount and
// ErrInsufficientPoints unchanged. The aggregate is unmodified on failure.
func (p *Progress) UsePoints(today time.Time, amount int64) error {
	if err := p.Ledger.Debit(amount); err != nil {
		return fmt.Errorf("use points: %w", err)
	}
	p.touch(today)
	return nil
}

func (p *Progress) touch(at time.Time) {
	p.Updated = at.UTC()
}
