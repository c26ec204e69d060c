package core

import "sort"

// SubjectStat holds the running average and attempt count for one subject.
// Subject names are case-sensitive and unique within a Performance record.
type SubjectStat struct {
	Subject      Subject `json:"subject"`
	AverageScore float64 `json:"average_score"`
	Attempts     int64   `json:"attempts"`
}

// Performance accumulates quiz scores as running means, without retaining a
// full score history. Subjects keep their insertion order so analysis output
// is deterministic.
type Performance struct {
	OverallAverage float64       `json:"overall_average"`
	BestScore      float64       `json:"best_score"`
	Attempts       int64         `json:"attempts"`
	Subjects       []SubjectStat `json:"subjects,omitempty"`
}

// RecordAttempt folds score into the overall running mean and, when subject is
// non-empty, into that subject's own running mean.
func (p *Performance) RecordAttempt(score float64, subject Subject) {
	p.Attempts++
	p.OverallAverage += (score - p.OverallAverage) / float64(p.Attempts)
	if score > p.BestScore {
		p.BestScore = score
	}
	if subject == "" {
		return
	}
	for i := range p.Subjects {
		if p.Subjects[i].Subject == subject {
			p.Subjects[i].Attempts++
			p.Subjects[i].AverageScore += (score - p.Subjects[i].AverageScore) / float64(p.Subjects[i].Attempts)
			return
		}
	}
	p.Subjects = append(p.Subjects, SubjectStat{Subject: subject, AverageScore: score, Attempts: 1})
}

// SubjectStat returns the stats recorded for subject, if any.
func (p Performance) SubjectStat(subject Subject) (SubjectStat, bool) {
	for _, st := range p.Subjects {
		if st.Subject == subject {
			return st, true
		}
	}
	return SubjectStat{}, false
}

// AnalysisThresholds splits subjects into strengths and weaknesses.
type AnalysisThresholds struct {
	StrengthMin float64 `json:"strength_min"`
	WeaknessMax float64 `json:"weakness_max"`
}

// DefaultAnalysisThresholds returns the standard 80/60 split.
func DefaultAnalysisThresholds() AnalysisThresholds {
	return AnalysisThresholds{StrengthMin: 80, WeaknessMax: 60}
}

// Analysis lists a learner's strong and weak subjects.
type Analysis struct {
	Strengths  []SubjectStat `json:"strengths"`
	Weaknesses []SubjectStat `json:"weaknesses"`
}

// Analyze classifies subjects against the thresholds. Strengths are sorted
// best first, weaknesses worst first; ties keep insertion order. Subjects
// between the thresholds appear in neither list.
func (p Performance) Analyze(t AnalysisThresholds) Analysis {
	var a Analysis
	for _, st := range p.Subjects {
		switch {
		case st.AverageScore >= t.StrengthMin:
			a.Strengths = append(a.Strengths, st)
		case st.AverageScore <= t.WeaknessMax:
			a.Weaknesses = append(a.Weaknesses, st)
		}
	}
	sort.SliceStable(a.Strengths, func(i, j int) bool {
		return a.Strengths[i].AverageScore > a.Strengths[j].AverageScore
	})
	sort.SliceStable(a.Weaknesses, func(i, j int) bool {
		return a.Weaknesses[i].AverageScore < a.Weaknesses[j].AverageScore
	})
	return a
}
