package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/yourorg/hoa-scout/internal/analysis"
	"go.uber.org/zap"
)

type TaskQueue interface {
	Submit(hoaID string) (analysis.Task, error)
	Task(id string) (analysis.Task, bool)
}

type ScoreReader interface {
	GetScore(ctx context.Context, id string) (*float64, error)
}

type AnalysisDeps struct {
	Queue  TaskQueue
	Scores ScoreReader
	Log    *zap.Logger
}

func RegisterAnalysis(r chi.Router, d AnalysisDeps) {
	// Fire and forget: the caller polls /status for the score.
	r.Post("/api/hoa/{id}/analyze", func(w http.ResponseWriter, req *http.Request) {
		id := hoaID(req)
		if id == "" {
			fail(w, req, http.StatusBadRequest, "HOA ID is required")
			return
		}
		task, err := d.Queue.Submit(id)
		switch {
		case errors.Is(err, analysis.ErrQueueFull), errors.Is(err, analysis.ErrClosed):
			d.Log.Warn("analysis rejected", zap.String("hoa_id", id), zap.Error(err))
			fail(w, req, http.StatusServiceUnavailable, "analysis is busy, try again shortly")
			return
		case err != nil:
			failFor(w, req, err, "failed to start analysis")
			return
		}
		render.Status(req, http.StatusAccepted)
		render.JSON(w, req, map[string]any{
			"success": true,
			"message": "Analysis started",
			"taskId":  task.ID,
		})
	})

	r.Get("/api/hoa/{id}/status", func(w http.ResponseWriter, req *http.Request) {
		id := hoaID(req)
		if id == "" {
			fail(w, req, http.StatusBadRequest, "HOA ID is required")
			return
		}
		score, err := d.Scores.GetScore(req.Context(), id)
		if err != nil {
			d.Log.Debug("analysis status", zap.String("hoa_id", id), zap.Error(err))
			failFor(w, req, err, "failed to read analysis status")
			return
		}
		render.JSON(w, req, map[string]any{
			"isComplete": score != nil,
			"score":      score,
		})
	})

	r.Get("/api/analysis/{taskID}", func(w http.ResponseWriter, req *http.Request) {
		task, ok := d.Queue.Task(chi.URLParam(req, "taskID"))
		if !ok {
			fail(w, req, http.StatusNotFound, "task not found")
			return
		}
		render.JSON(w, req, task)
	})
}
