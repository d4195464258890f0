package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/yourorg/hoa-scout/internal/metrics"
	"go.uber.org/zap"
)

type CityLister interface {
	Get(ctx context.Context) (cities []string, cached bool, err error)
}

type CitiesDeps struct {
	Cities  CityLister
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

func RegisterCities(r chi.Router, d CitiesDeps) {
	r.Get("/api/cities", func(w http.ResponseWriter, req *http.Request) {
		list, cached, err := d.Cities.Get(req.Context())
		if err != nil {
			d.Log.Error("load cities", zap.Error(err))
			fail(w, req, http.StatusInternalServerError, "failed to load cities")
			return
		}
		if d.Metrics != nil {
			result := "miss"
			if cached {
				result = "hit"
			}
			d.Metrics.CitiesCache.WithLabelValues(result).Inc()
		}
		render.JSON(w, req, map[string]any{
			"success": true,
			"cities":  list,
			"count":   len(list),
			"cached":  cached,
		})
	})
}
