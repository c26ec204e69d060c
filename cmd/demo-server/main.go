package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	mem "progresskit/adapters/memory"
	ws "progresskit/adapters/websocket"
	"progresskit/core"
	"progresskit/engine"
	"progresskit/realtime"
)

func main() {
	// Use readable text logging for development/demo
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(textHandler))

	ctx := context.Background()
	store := mem.New()
	bus := engine.NewEventBus(engine.DispatchAsync)
	svc := engine.NewProgressService(store, bus, engine.DefaultRules())
	hub := realtime.NewHub()

	// Forward progress events to WebSocket clients
	bus.Subscribe(core.EventPointsCredited, func(ctx context.Context, e core.Event) { hub.Broadcast(ctx, e) })
	bus.Subscribe(core.EventStreakExtended, func(ctx context.Context, e core.Event) { hub.Broadcast(ctx, e) })
	bus.Subscribe(core.EventAchievementUnlocked, func(ctx context.Context, e core.Event) { hub.Broadcast(ctx, e) })

	http.Handle("/ws", ws.Handler(hub))
	http.HandleFunc("/learners/", func(w http.ResponseWriter, r *http.Request) {
		// routes: POST /learners/{id}/quizzes?score=90&points=10&subject=algebra,
		// POST /learners/{id}/points/use?amount=50, GET /learners/{id}
		parts := split(r.URL.Path, '/')
		if len(parts) < 2 {
			http.NotFound(w, r)
			return
		}
		learner := core.LearnerID(parts[1])
		switch r.Method {
		case http.MethodPost:
			if len(parts) >= 3 && parts[2] == "quizzes" {
				score, _ := strconv.ParseFloat(r.URL.Query().Get("score"), 64)
				points, _ := strconv.ParseInt(r.URL.Query().Get("points"), 10, 64)
				result, err := svc.RecordQuizCompletion(ctx, learner, core.QuizCompletion{
					ScorePercent: score,
					PointsEarned: points,
					Subject:      core.Subject(r.URL.Query().Get("subject")),
				})
				if err != nil {
					writeJSON(w, map[string]any{"err": err.Error()})
					return
				}
				writeJSON(w, result)
				return
			}
			if len(parts) >= 4 && parts[2] == "points" && parts[3] == "use" {
				amount, _ := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
				p, err := svc.UsePoints(ctx, learner, amount)
				if err != nil {
					writeJSON(w, map[string]any{"err": err.Error()})
					return
				}
				writeJSON(w, map[string]any{"available": p.Ledger.Available()})
				return
			}
		case http.MethodGet:
			p, err := svc.GetProgress(ctx, learner)
			if err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
			writeJSON(w, p)
			return
		}
		http.NotFound(w, r)
	})

	slog.Info("starting demo server on :8080")

	if err := http.ListenAndServe(":8080", nil); err != nil {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func split(p string, sep rune) []string {
	var parts []string
	current := make([]rune, 0, len(p))

	for _, r := range p {
		if r == sep {
			if len(current) > 0 {
				parts = append(parts, string(current))
				current = current[:0]
			}
			continue
		}
		current = append(current, r)
	}

	if len(current) > 0 {
		parts = append(parts, string(current))
	}

	return parts
}
