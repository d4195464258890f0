package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/yourorg/hoa-scout/internal/enrich"
	"github.com/yourorg/hoa-scout/internal/hoa"
	"go.uber.org/zap"
)

type Enricher interface {
	Enrich(ctx context.Context, id string, force bool) (enrich.Result, error)
	Status(ctx context.Context, id string) enrich.Status
}

type EnrichDeps struct {
	Enricher Enricher
	Log      *zap.Logger
}

func RegisterEnrich(r chi.Router, d EnrichDeps) {
	r.Post("/api/hoa/{id}/enrich", func(w http.ResponseWriter, req *http.Request) {
		id := hoaID(req)
		force, _ := strconv.ParseBool(req.URL.Query().Get("force"))

		res, err := d.Enricher.Enrich(req.Context(), id, force)
		if err != nil {
			out := enrich.Outcome(res, err)
			var verr *hoa.ValidationError
			switch {
			case errors.As(err, &verr):
				render.Status(req, http.StatusBadRequest)
			case errors.Is(err, hoa.ErrNotFound):
				render.Status(req, http.StatusNotFound)
			default:
				d.Log.Error("enrichment failed", zap.String("hoa_id", id), zap.Error(err))
				render.Status(req, http.StatusInternalServerError)
			}
			render.JSON(w, req, out)
			return
		}
		render.JSON(w, req, res)
	})

	r.Get("/api/hoa/{id}/enrichment", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, d.Enricher.Status(req.Context(), hoaID(req)))
	})
}
