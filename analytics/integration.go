package analytics

import (
	"context"
	"time"

	"progresskit/core"
	"progresskit/engine"
)

var allEventTypes = []core.EventType{
	core.EventPointsCredited,
	core.EventPointsDebited,
	core.EventAchievementUnlocked,
	core.EventStreakExtended,
	core.EventQuizCompleted,
}

// Attach subscribes a hook to every event type the service publishes.
// Returns an unsubscribe function.
func Attach(svc *engine.ProgressService, hook Hook) func() {
	unsubs := make([]func(), 0, len(allEventTypes))
	for _, typ := range allEventTypes {
		unsubs = append(unsubs, svc.Subscribe(typ, func(_ context.Context, e core.Event) {
			hook.OnEvent(e)
		}))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Service bundles metrics aggregation with periodic export.
type Service struct {
	metrics  *StudyMetrics
	exporter *ExportManager
	interval time.Duration
}

// NewService creates an analytics service exporting reports every interval.
func NewService(exporter *ExportManager, interval time.Duration) *Service {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Service{
		metrics:  NewStudyMetrics(),
		exporter: exporter,
		interval: interval,
	}
}

// Metrics exposes the underlying aggregator for queries.
func (s *Service) Metrics() *StudyMetrics { return s.metrics }

// Hook returns the hook to register with the progress engine.
func (s *Service) Hook() Hook { return s.metrics }

// Start begins periodic export of the current day's report. Blocks until ctx
// is done, so run it in a goroutine.
func (s *Service) Start(ctx context.Context) {
	if s.exporter == nil {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = s.exporter.Close()
			return
		case now := <-ticker.C:
			day := now.UTC().Format("2006-01-02")
			_ = s.exporter.Export(ctx, s.metrics.Report(day))
		}
	}
}
