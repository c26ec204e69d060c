package core

import (
	"errors"
	"math"
	"strings"
)

// LearnerID uniquely identifies a learner in the progress domain.
type LearnerID string

// Subject is a case-sensitive subject name used for per-subject statistics.
type Subject string

// AchievementCode is a named, one-time unlockable milestone identifier.
type AchievementCode string

// AddSafe adds delta to base ensuring no signed overflow occurs.
func AddSafe(base int64, delta int64) (int64, error) {
	if (delta > 0 && base > math.MaxInt64-delta) || (delta < 0 && base < math.MinInt64-delta) {
		return 0, errors.New("integer overflow in AddSafe")
	}
	return base + delta, nil
}

// NormalizeLearnerID trims and lowercases learner identifiers.
func NormalizeLearnerID(id LearnerID) (LearnerID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", errors.New("empty learner id")
	}
	return LearnerID(strings.ToLower(s)), nil
}

// ValidateAchievementCode ensures non-empty code with simple charset check.
func ValidateAchievementCode(c AchievementCode) error {
	s := strings.TrimSpace(string(c))
	if s == "" {
		return errors.New("empty achievement code")
	}
	// simple check: alnum, dash, underscore
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			continue
		}
		return errors.New("invalid achievement code")
	}
	return nil
}
