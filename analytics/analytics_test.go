package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "progresskit/adapters/memory"
	"progresskit/core"
	"progresskit/engine"
)

func TestStudyMetrics_OnEvent(t *testing.T) {
	metrics := NewStudyMetrics()

	learner := core.LearnerID("learner123")
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	metrics.OnEvent(core.NewQuizCompleted(now, learner, 90, "algebra"))
	metrics.OnEvent(core.NewPointsCredited(now, learner, 100, 100))
	metrics.OnEvent(core.NewAchievementUnlocked(now, learner, "first_quiz", 0))
	metrics.OnEvent(core.NewStreakExtended(now, learner, 3))
	metrics.OnEvent(core.NewPointsDebited(now, "other", 40, 60))

	day := "2026-08-29"
	assert.Equal(t, 2, metrics.DailyActiveLearners(day))
	assert.Equal(t, int64(100), metrics.PointsCreditedByDay(day))
	assert.Equal(t, int64(40), metrics.PointsDebitedByDay(day))
	assert.Equal(t, int64(1), metrics.QuizzesByDay(day))
	assert.Equal(t, 90.0, metrics.AverageScoreByDay(day))
	assert.Equal(t, int64(1), metrics.UnlocksByCode("first_quiz"))
	assert.Equal(t, 1, metrics.UniqueHolders("first_quiz"))
	assert.Equal(t, 3, metrics.LongestStreakSeen())

	// week and month keys
	assert.Equal(t, 2, metrics.WeeklyActiveLearners(getWeekKey(now)))
	assert.Equal(t, 2, metrics.MonthlyActiveLearners("2026-08"))
}

func TestStudyMetrics_Report(t *testing.T) {
	metrics := NewStudyMetrics()
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	metrics.OnEvent(core.NewQuizCompleted(now, "a", 80, "algebra"))
	metrics.OnEvent(core.NewQuizCompleted(now, "a", 90, "algebra"))
	metrics.OnEvent(core.NewPointsCredited(now, "a", 20, 20))

	report := metrics.Report("2026-08-29")
	assert.Equal(t, 1, report.ActiveLearners)
	assert.Equal(t, int64(2), report.QuizzesTaken)
	assert.Equal(t, 85.0, report.AverageScore)
	assert.Equal(t, int64(20), report.PointsCredited)
}

func TestDAL(t *testing.T) {
	dal := NewDAL()
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	dal.OnEvent(core.NewPointsCredited(now, "a", 1, 1))
	dal.OnEvent(core.NewPointsCredited(now, "a", 1, 2))
	dal.OnEvent(core.NewPointsCredited(now, "b", 1, 1))

	assert.Equal(t, 2, dal.Count("2026-08-29"))
	assert.Equal(t, 0, dal.Count("2026-08-30"))
}

func TestBridgeFansOut(t *testing.T) {
	dal := NewDAL()
	metrics := NewStudyMetrics()
	bridge := NewBridge(dal, metrics)

	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	bridge.OnEvent(core.NewPointsCredited(now, "a", 5, 5))

	assert.Equal(t, 1, dal.Count("2026-08-29"))
	assert.Equal(t, int64(5), metrics.PointsCreditedByDay("2026-08-29"))
}

func TestAttachReceivesServiceEvents(t *testing.T) {
	storage := mem.New()
	bus := engine.NewEventBus(engine.DispatchSync)
	svc := engine.NewProgressService(storage, bus, engine.DefaultRules())

	metrics := NewStudyMetrics()
	unsub := Attach(svc, metrics)
	defer unsub()

	_, err := svc.RecordQuizCompletion(context.Background(), "alice", core.QuizCompletion{
		ScorePercent: 95,
		PointsEarned: 10,
	})
	require.NoError(t, err)

	day := time.Now().UTC().Format("2006-01-02")
	assert.Equal(t, 1, metrics.DailyActiveLearners(day))
	assert.Equal(t, int64(1), metrics.QuizzesByDay(day))
	// quiz points plus first_quiz bonus
	assert.Greater(t, metrics.PointsCreditedByDay(day), int64(0))
	assert.Equal(t, int64(1), metrics.UnlocksByCode("first_quiz"))
}

func TestPrometheusHook(t *testing.T) {
	reg := prometheus.NewRegistry()
	hook := NewPrometheusHook(reg)

	now := time.Now().UTC()
	hook.OnEvent(core.NewPointsCredited(now, "a", 50, 50))
	hook.OnEvent(core.NewPointsDebited(now, "a", 20, 30))
	hook.OnEvent(core.NewQuizCompleted(now, "a", 70, "algebra"))
	hook.OnEvent(core.NewAchievementUnlocked(now, "a", "first_quiz", 10))

	assert.Equal(t, 50.0, testutil.ToFloat64(hook.pointsCredited))
	assert.Equal(t, 20.0, testutil.ToFloat64(hook.pointsDebited))
	assert.Equal(t, 1.0, testutil.ToFloat64(hook.quizzes))
	assert.Equal(t, 1.0, testutil.ToFloat64(hook.unlocks.WithLabelValues("first_quiz")))
}

func TestHTTPExporterBatches(t *testing.T) {
	var received [][]byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		received = append(received, buf.Bytes())
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	exporter := NewHTTPExporter(server.URL, "key", 2)
	ctx := context.Background()

	require.NoError(t, exporter.Export(ctx, &DailyReport{Day: "2026-08-28"}))
	assert.Empty(t, received, "should buffer until batch size")

	require.NoError(t, exporter.Export(ctx, &DailyReport{Day: "2026-08-29"}))
	require.Len(t, received, 1)

	var batch []DailyReport
	require.NoError(t, json.Unmarshal(received[0], &batch))
	assert.Len(t, batch, 2)
}

func TestWriterExporter(t *testing.T) {
	buf := new(bytes.Buffer)
	exporter := NewWriterExporter(buf, "[ANALYTICS]")

	require.NoError(t, exporter.Export(context.Background(), &DailyReport{Day: "2026-08-29", QuizzesTaken: 3}))
	assert.Contains(t, buf.String(), "[ANALYTICS]")
	assert.Contains(t, buf.String(), `"quizzes_taken":3`)
}
