package core

import "time"

// Streak tracks consecutive UTC calendar days with at least one recorded
// learning activity. A zero LastActivityDate means no activity has ever been
// recorded, in which case CurrentStreak is 0.
//
// Day comparison uses UTC calendar-date equality, ignoring time-of-day.
type Streak struct {
	CurrentStreak    int       `json:"current_streak"`
	BestStreak       int       `json:"best_streak"`
	LastActivityDate time.Time `json:"last_activity_date"`
}

// DateOnly truncates t to the start of its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// RecordActivity advances, resets, or leaves the streak unchanged based on
// the elapsed calendar days since the last activity:
//
//	no prior activity          -> streak = 1
//	same calendar day          -> no change (idempotent within a day)
//	exactly one day later      -> streak + 1
//	two or more days, or today
//	earlier than last activity -> reset to 1
func (s *Streak) RecordActivity(today time.Time) {
	day := DateOnly(today)

	if s.LastActivityDate.IsZero() {
		s.CurrentStreak = 1
		s.BestStreak = 1
		s.LastActivityDate = day
		return
	}

	last := DateOnly(s.LastActivityDate)
	switch daysBetween(last, day) {
	case 0:
		return
	case 1:
		s.CurrentStreak++
		if s.CurrentStreak > s.BestStreak {
			s.BestStreak = s.CurrentStreak
		}
	default:
		// gap of two or more days, or the clock went backwards
		s.CurrentStreak = 1
	}
	s.LastActivityDate = day
}

// IsBroken reports whether the streak has lapsed as of today: the last
// activity was two or more calendar days ago.
func (s Streak) IsBroken(today time.Time) bool {
	if s.LastActivityDate.IsZero() {
		return false
	}
	return daysBetween(DateOnly(s.LastActivityDate), DateOnly(today)) > 1
}

// daysBetween returns whole calendar days from a to b; negative when b is
// earlier. Both arguments must already be UTC midnights.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
