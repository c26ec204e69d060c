package analytics

import (
	"fmt"
	"sync"
	"time"

	"progresskit/core"
)

// Hook receives domain events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

// DAL tracks daily active learners.
type DAL struct {
	mu   sync.Mutex
	days map[string]map[core.LearnerID]struct{}
}

func NewDAL() *DAL { return &DAL{days: map[string]map[core.LearnerID]struct{}{}} }

func (d *DAL) OnEvent(e core.Event) {
	day := e.Time.UTC().Format("2006-01-02")
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.days[day]
	if m == nil {
		m = map[core.LearnerID]struct{}{}
		d.days[day] = m
	}
	m[e.Learner] = struct{}{}
}

func (d *DAL) Count(day string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.days[day])
}

// StudyMetrics aggregates platform-wide learning KPIs from the event stream.
type StudyMetrics struct {
	mu sync.RWMutex

	// Learner engagement
	dailyActive   map[string]map[core.LearnerID]struct{}
	weeklyActive  map[string]map[core.LearnerID]struct{}
	monthlyActive map[string]map[core.LearnerID]struct{}

	// Points flow
	pointsCreditedByDay map[string]int64
	pointsDebitedByDay  map[string]int64

	// Quizzes
	quizzesByDay  map[string]int64
	scoreSumByDay map[string]float64

	// Achievements
	unlocksByCode map[core.AchievementCode]int64
	unlocksByDay  map[string]int64
	holdersByCode map[core.AchievementCode]map[core.LearnerID]struct{}

	// Streaks
	streakExtensionsByDay map[string]int64
	longestStreakSeen     int
}

func NewStudyMetrics() *StudyMetrics {
	return &StudyMetrics{
		dailyActive:           make(map[string]map[core.LearnerID]struct{}),
		weeklyActive:          make(map[string]map[core.LearnerID]struct{}),
		monthlyActive:         make(map[string]map[core.LearnerID]struct{}),
		pointsCreditedByDay:   make(map[string]int64),
		pointsDebitedByDay:    make(map[string]int64),
		quizzesByDay:          make(map[string]int64),
		scoreSumByDay:         make(map[string]float64),
		unlocksByCode:         make(map[core.AchievementCode]int64),
		unlocksByDay:          make(map[string]int64),
		holdersByCode:         make(map[core.AchievementCode]map[core.LearnerID]struct{}),
		streakExtensionsByDay: make(map[string]int64),
	}
}

func (m *StudyMetrics) OnEvent(e core.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := e.Time.UTC().Format("2006-01-02")
	week := getWeekKey(e.Time)
	month := getMonthKey(e.Time)

	m.trackEngagement(e.Learner, day, week, month)

	switch e.Type {
	case core.EventPointsCredited:
		if e.Points > 0 {
			m.pointsCreditedByDay[day] += e.Points
		}
	case core.EventPointsDebited:
		if e.Points > 0 {
			m.pointsDebitedByDay[day] += e.Points
		}
	case core.EventQuizCompleted:
		m.quizzesByDay[day]++
		m.scoreSumByDay[day] += e.Score
	case core.EventAchievementUnlocked:
		m.unlocksByCode[e.Code]++
		m.unlocksByDay[day]++
		if m.holdersByCode[e.Code] == nil {
			m.holdersByCode[e.Code] = make(map[core.LearnerID]struct{})
		}
		m.holdersByCode[e.Code][e.Learner] = struct{}{}
	case core.EventStreakExtended:
		m.streakExtensionsByDay[day]++
		if e.Streak > m.longestStreakSeen {
			m.longestStreakSeen = e.Streak
		}
	}
}

func (m *StudyMetrics) trackEngagement(learner core.LearnerID, day, week, month string) {
	if m.dailyActive[day] == nil {
		m.dailyActive[day] = make(map[core.LearnerID]struct{})
	}
	m.dailyActive[day][learner] = struct{}{}

	if m.weeklyActive[week] == nil {
		m.weeklyActive[week] = make(map[core.LearnerID]struct{})
	}
	m.weeklyActive[week][learner] = struct{}{}

	if m.monthlyActive[month] == nil {
		m.monthlyActive[month] = make(map[core.LearnerID]struct{})
	}
	m.monthlyActive[month][learner] = struct{}{}
}

// DailyActiveLearners returns the count of distinct active learners for a day.
func (m *StudyMetrics) DailyActiveLearners(day string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.dailyActive[day])
}

// WeeklyActiveLearners returns the count for an ISO week key like "2026-W35".
func (m *StudyMetrics) WeeklyActiveLearners(week string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.weeklyActive[week])
}

// MonthlyActiveLearners returns the count for a month key like "2026-08".
func (m *StudyMetrics) MonthlyActiveLearners(month string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.monthlyActive[month])
}

// PointsCreditedByDay returns total points credited on a day.
func (m *StudyMetrics) PointsCreditedByDay(day string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pointsCreditedByDay[day]
}

// PointsDebitedByDay returns total points debited on a day.
func (m *StudyMetrics) PointsDebitedByDay(day string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pointsDebitedByDay[day]
}

// QuizzesByDay returns the number of quizzes completed on a day.
func (m *StudyMetrics) QuizzesByDay(day string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.quizzesByDay[day]
}

// AverageScoreByDay returns the mean quiz score for a day (0 if none).
func (m *StudyMetrics) AverageScoreByDay(day string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := m.quizzesByDay[day]
	if n == 0 {
		return 0
	}
	return m.scoreSumByDay[day] / float64(n)
}

// UnlocksByCode returns total unlocks of an achievement.
func (m *StudyMetrics) UnlocksByCode(code core.AchievementCode) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.unlocksByCode[code]
}

// UniqueHolders returns the count of distinct learners holding an achievement.
func (m *StudyMetrics) UniqueHolders(code core.AchievementCode) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.holdersByCode[code])
}

// LongestStreakSeen returns the highest streak broadcast so far.
func (m *StudyMetrics) LongestStreakSeen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.longestStreakSeen
}

// DailyReport is a point-in-time aggregation snapshot for one day.
type DailyReport struct {
	Day             string  `json:"day"`
	ActiveLearners  int     `json:"active_learners"`
	PointsCredited  int64   `json:"points_credited"`
	PointsDebited   int64   `json:"points_debited"`
	QuizzesTaken    int64   `json:"quizzes_taken"`
	AverageScore    float64 `json:"average_score"`
	Unlocks         int64   `json:"unlocks"`
	StreakExtension int64   `json:"streak_extensions"`
}

// Report builds the daily report for the given day key.
func (m *StudyMetrics) Report(day string) *DailyReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var avg float64
	if n := m.quizzesByDay[day]; n > 0 {
		avg = m.scoreSumByDay[day] / float64(n)
	}
	return &DailyReport{
		Day:             day,
		ActiveLearners:  len(m.dailyActive[day]),
		PointsCredited:  m.pointsCreditedByDay[day],
		PointsDebited:   m.pointsDebitedByDay[day],
		QuizzesTaken:    m.quizzesByDay[day],
		AverageScore:    avg,
		Unlocks:         m.unlocksByDay[day],
		StreakExtension: m.streakExtensionsByDay[day],
	}
}

// Helper functions
func getWeekKey(t time.Time) string {
	tt := t.UTC()
	year, week := tt.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func getMonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
