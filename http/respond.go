// Package httpapi holds the JSON endpoints of the HOA service.
package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/yourorg/hoa-scout/internal/hoa"
)

func fail(w http.ResponseWriter, req *http.Request, status int, msg string) {
	render.Status(req, status)
	render.JSON(w, req, map[string]any{"success": false, "error": msg})
}

// failFor maps domain errors to a status; anything unrecognised is a 500
// with fallback as the message.
func failFor(w http.ResponseWriter, req *http.Request, err error, fallback string) {
	var verr *hoa.ValidationError
	switch {
	case errors.As(err, &verr):
		fail(w, req, http.StatusBadRequest, verr.Message)
	case errors.Is(err, hoa.ErrNotFound):
		fail(w, req, http.StatusNotFound, "HOA not found")
	default:
		fail(w, req, http.StatusInternalServerError, fallback)
	}
}

func hoaID(req *http.Request) string {
	return strings.TrimSpace(chi.URLParam(req, "id"))
}
