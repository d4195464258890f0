package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/yourorg/hoa-scout/internal/hoa"
	"go.uber.org/zap"
)

type HOASearcher interface {
	SearchHOAs(ctx context.Context, query string, limit int) ([]hoa.Summary, error)
}

type SearchDeps struct {
	Store HOASearcher
	Log   *zap.Logger
}

func RegisterSearch(r chi.Router, d SearchDeps) {
	r.Get("/api/hoa/search", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		params, err := hoa.ParseSearchParams(q.Get("q"), q.Get("limit"))
		if err != nil {
			failFor(w, req, err, "invalid search")
			return
		}
		results, err := d.Store.SearchHOAs(req.Context(), params.Query, params.Limit)
		if err != nil {
			d.Log.Error("hoa search", zap.String("query", params.Query), zap.Error(err))
			fail(w, req, http.StatusInternalServerError, "search failed")
			return
		}
		if len(results) > params.Limit {
			results = results[:params.Limit]
		}
		render.JSON(w, req, map[string]any{
			"success": true,
			"results": results,
			"count":   len(results),
		})
	})
}
