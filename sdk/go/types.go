package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ProgressState mirrors the public JSON surface of core.Progress.
type ProgressState struct {
	Learner string `json:"learner"`

	Ledger struct {
		TotalEarned int64 `json:"total_earned"`
		TotalUsed   int64 `json:"total_used"`
	} `json:"ledger"`

	Streak struct {
		CurrentStreak    int       `json:"current_streak"`
		BestStreak       int       `json:"best_streak"`
		LastActivityDate time.Time `json:"last_activity_date"`
	} `json:"streak"`

	Performance struct {
		OverallAverage float64       `json:"overall_average"`
		BestScore      float64       `json:"best_score"`
		Attempts       int64         `json:"attempts"`
		Subjects       []SubjectStat `json:"subjects,omitempty"`
	} `json:"performance"`

	Unlocked []string `json:"unlocked,omitempty"`

	DocumentsUploaded int64 `json:"documents_uploaded"`
	QuizzesGenerated  int64 `json:"quizzes_generated"`
	QuizzesCompleted  int64 `json:"quizzes_completed"`
	CoursesViewed     int64 `json:"courses_viewed"`
	CoursesPurchased  int64 `json:"courses_purchased"`

	StudyMinutes float64   `json:"study_minutes"`
	Updated      time.Time `json:"updated"`
}

// Available returns the spendable point balance.
func (p ProgressState) Available() int64 {
	return p.Ledger.TotalEarned - p.Ledger.TotalUsed
}

// SubjectStat mirrors per-subject performance.
type SubjectStat struct {
	Subject      string  `json:"subject"`
	AverageScore float64 `json:"average_score"`
	Attempts     int64   `json:"attempts"`
}

// Analysis mirrors the strengths/weaknesses response.
type Analysis struct {
	Strengths  []SubjectStat `json:"strengths"`
	Weaknesses []SubjectStat `json:"weaknesses"`
}

// Unlock mirrors one newly unlocked achievement.
type Unlock struct {
	Code        string `json:"code"`
	Name        string `json:"name,omitempty"`
	BonusPoints int64  `json:"bonus_points,omitempty"`
}

// QuizOutcome mirrors the response of recording a quiz or document.
type QuizOutcome struct {
	Progress *ProgressState `json:"progress"`
	Unlocks  []Unlock       `json:"unlocks,omitempty"`
}

// Quiz carries the inputs of a completed quiz.
type Quiz struct {
	ScorePercent    float64 `json:"score_percent"`
	PointsEarned    int64   `json:"points_earned"`
	DurationSeconds int64   `json:"duration_seconds"`
	Subject         string  `json:"subject,omitempty"`
}

// DiscountQuote mirrors the bounded discount response.
type DiscountQuote struct {
	PointsUsed      int64   `json:"points_used"`
	DiscountPercent float64 `json:"discount_percent"`
	DiscountAmount  float64 `json:"discount_amount"`
	FinalPrice      float64 `json:"final_price"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("request failed: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// ErrEmptyLearnerID is returned when the learner id is empty.
var ErrEmptyLearnerID = errors.New("learner id is required")
