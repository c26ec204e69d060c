package analytics

import (
	"github.com/prometheus/client_golang/prometheus"

	"progresskit/core"
)

// PrometheusHook exposes event counters through a prometheus registry.
type PrometheusHook struct {
	pointsCredited prometheus.Counter
	pointsDebited  prometheus.Counter
	quizzes        prometheus.Counter
	unlocks        *prometheus.CounterVec
	streakLength   prometheus.Gauge
}

// NewPrometheusHook registers the progress collectors on reg.
func NewPrometheusHook(reg prometheus.Registerer) *PrometheusHook {
	h := &PrometheusHook{
		pointsCredited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "progresskit",
			Name:      "points_credited_total",
			Help:      "Total points credited to learners.",
		}),
		pointsDebited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "progresskit",
			Name:      "points_debited_total",
			Help:      "Total points debited from learners.",
		}),
		quizzes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "progresskit",
			Name:      "quizzes_completed_total",
			Help:      "Total quizzes completed.",
		}),
		unlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "progresskit",
			Name:      "achievements_unlocked_total",
			Help:      "Achievement unlocks by code.",
		}, []string{"code"}),
		streakLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "progresskit",
			Name:      "last_streak_days",
			Help:      "Streak length from the most recent streak event.",
		}),
	}
	reg.MustRegister(h.pointsCredited, h.pointsDebited, h.quizzes, h.unlocks, h.streakLength)
	return h
}

func (h *PrometheusHook) OnEvent(e core.Event) {
	switch e.Type {
	case core.EventPointsCredited:
		if e.Points > 0 {
			h.pointsCredited.Add(float64(e.Points))
		}
	case core.EventPointsDebited:
		if e.Points > 0 {
			h.pointsDebited.Add(float64(e.Points))
		}
	case core.EventQuizCompleted:
		h.quizzes.Inc()
	case core.EventAchievementUnlocked:
		h.unlocks.WithLabelValues(string(e.Code)).Inc()
	case core.EventStreakExtended:
		h.streakLength.Set(float64(e.Streak))
	}
}
