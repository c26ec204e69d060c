package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventPointsCredited      EventType = "points_credited"
	EventPointsDebited       EventType = "points_debited"
	EventAchievementUnlocked EventType = "achievement_unlocked"
	EventStreakExtended      EventType = "streak_extended"
	EventQuizCompleted       EventType = "quiz_completed"
)

// Event represents an immutable domain event.
type Event struct {
	Type     EventType       `json:"type"`
	Time     time.Time       `json:"time"`
	Learner  LearnerID       `json:"learner"`
	Points   int64           `json:"points,omitempty"`
	Balance  int64           `json:"balance,omitempty"`
	Code     AchievementCode `json:"code,omitempty"`
	Streak   int             `json:"streak,omitempty"`
	Score    float64         `json:"score,omitempty"`
	Subject  Subject         `json:"subject,omitempty"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

func NewPointsCredited(at time.Time, learner LearnerID, points, balance int64) Event {
	return Event{Type: EventPointsCredited, Time: at.UTC(), Learner: learner, Points: points, Balance: balance}
}

func NewPointsDebited(at time.Time, learner LearnerID, points, balance int64) Event {
	return Event{Type: EventPointsDebited, Time: at.UTC(), Learner: learner, Points: points, Balance: balance}
}

func NewAchievementUnlocked(at time.Time, learner LearnerID, code AchievementCode, bonus int64) Event {
	return Event{Type: EventAchievementUnlocked, Time: at.UTC(), Learner: learner, Code: code, Points: bonus}
}

func NewStreakExtended(at time.Time, learner LearnerID, streak int) Event {
	return Event{Type: EventStreakExtended, Time: at.UTC(), Learner: learner, Streak: streak}
}

func NewQuizCompleted(at time.Time, learner LearnerID, score float64, subject Subject) Event {
	return Event{Type: EventQuizCompleted, Time: at.UTC(), Learner: learner, Score: score, Subject: subject}
}
