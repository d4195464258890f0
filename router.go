package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
	httpapi "github.com/yourorg/hoa-scout/http"
	"github.com/yourorg/hoa-scout/internal/logger"
	"github.com/yourorg/hoa-scout/internal/metrics"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Log                *zap.Logger
	Metrics            *metrics.Metrics
	RateLimitPerMinute int
	// Ping reports datastore health; nil skips the check.
	Ping func(ctx context.Context) error

	Cities   httpapi.CitiesDeps
	Search   httpapi.SearchDeps
	Analysis httpapi.AnalysisDeps
	Enrich   httpapi.EnrichDeps
	Report   httpapi.ReportDeps
}

func BuildRouter(d RouterDeps) http.Handler {
	if d.RateLimitPerMinute <= 0 {
		d.RateLimitPerMinute = 100
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(d.Log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if d.Ping != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ping(ctx); err != nil {
				render.Status(req, http.StatusServiceUnavailable)
				render.JSON(w, req, map[string]any{"ok": false, "error": "database unreachable"})
				return
			}
		}
		render.JSON(w, req, map[string]any{"ok": true})
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(d.RateLimitPerMinute, time.Minute)) // protect provider quota
		r.Use(render.SetContentType(render.ContentTypeJSON))

		httpapi.RegisterCities(r, d.Cities)
		httpapi.RegisterSearch(r, d.Search)
		httpapi.RegisterAnalysis(r, d.Analysis)
		httpapi.RegisterEnrich(r, d.Enrich)
		httpapi.RegisterReport(r, d.Report)
	})
	return r
}
