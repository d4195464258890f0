package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yourorg/hoa-scout/internal/format"
	"github.com/yourorg/hoa-scout/internal/hoa"
	"github.com/yourorg/hoa-scout/internal/pagecache"
	"go.uber.org/zap"
)

type HOAGetter interface {
	GetHOA(ctx context.Context, id string) (*hoa.HOA, error)
}

type PageCache interface {
	Get(ctx context.Context, path string) ([]byte, bool, error)
	Set(ctx context.Context, path string, body []byte) error
}

type ReportDeps struct {
	Store HOAGetter
	Pages PageCache
	Now   func() time.Time
	Log   *zap.Logger
}

// Report is the display-ready view of one HOA.
type Report struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Location           string           `json:"location"`
	Address            string           `json:"address"`
	ManagementCompany  string           `json:"managementCompany"`
	ManagementVerified bool             `json:"managementVerified"`
	MonthlyFee         string           `json:"monthlyFee"`
	Score              string           `json:"score"`
	ScoreLabel         string           `json:"scoreLabel,omitempty"`
	ScoreTone          string           `json:"scoreTone,omitempty"`
	Enrichment         ReportEnrichment `json:"enrichment"`
	UpdatedAt          string           `json:"updatedAt"`
	GeneratedAt        time.Time        `json:"generatedAt"`
}

type ReportEnrichment struct {
	Status          string `json:"status"`
	EnrichedOn      string `json:"enrichedOn,omitempty"`
	Confidence      string `json:"confidence,omitempty"`
	Source          string `json:"source,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email,omitempty"`
	Website         string `json:"website,omitempty"`
	SubdivisionName string `json:"subdivisionName,omitempty"`
	FeeEstimate     string `json:"feeEstimate,omitempty"`
	Sources         string `json:"sources,omitempty"`
}

func RegisterReport(r chi.Router, d ReportDeps) {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	r.Get("/api/hoa/{id}/report", func(w http.ResponseWriter, req *http.Request) {
		id := hoaID(req)
		if id == "" {
			fail(w, req, http.StatusBadRequest, "HOA ID is required")
			return
		}
		path := pagecache.ReportPath(id)
		ctx := req.Context()

		if d.Pages != nil {
			body, ok, err := d.Pages.Get(ctx, path)
			if err != nil {
				d.Log.Warn("report cache read", zap.String("path", path), zap.Error(err))
			}
			if ok {
				writeCached(w, body, "HIT")
				return
			}
		}

		h, err := d.Store.GetHOA(ctx, id)
		if err != nil {
			if !errors.Is(err, hoa.ErrNotFound) {
				d.Log.Error("report load", zap.String("hoa_id", id), zap.Error(err))
			}
			failFor(w, req, err, "failed to build report")
			return
		}
		body, err := json.Marshal(BuildReport(h, now()))
		if err != nil {
			failFor(w, req, err, "failed to build report")
			return
		}
		if d.Pages != nil {
			if err := d.Pages.Set(ctx, path, body); err != nil {
				d.Log.Warn("report cache write", zap.String("path", path), zap.Error(err))
			}
		}
		writeCached(w, body, "MISS")
	})
}

func writeCached(w http.ResponseWriter, body []byte, state string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Cache", state)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// maxProviderText caps free text copied from the provider answer.
const maxProviderText = 80

// BuildReport formats h for display as of now.
func BuildReport(h *hoa.HOA, now time.Time) Report {
	rep := Report{
		ID:                h.ID,
		Name:              format.TitleCase(h.Name),
		Location:          location(h),
		Address:           strings.TrimSpace(h.Address),
		ManagementCompany: "N/A",
		MonthlyFee:        format.MonthlyFee(h.MonthlyFee),
		Score:             format.Score(h.OverallScore),
		UpdatedAt:         format.DateShort(h.UpdatedAt),
		GeneratedAt:       now.UTC(),
		Enrichment:        ReportEnrichment{Status: "Not enriched"},
	}
	if h.OverallScore != nil {
		rep.ScoreLabel = format.ScoreLabel(*h.OverallScore)
		rep.ScoreTone = format.ScoreTone(*h.OverallScore)
	}
	if mc := strings.TrimSpace(h.StoredManagementCompany()); mc != "" {
		rep.ManagementCompany = mc
	}

	rec := h.PublicRecords
	if rec == nil || !rec.Enriched {
		return rep
	}
	if rec.ManagementCompany != nil {
		if rep.ManagementCompany == "N/A" {
			rep.ManagementCompany = rec.ManagementCompany.Name
		}
		rep.ManagementVerified = rec.ManagementCompany.Verified &&
			strings.EqualFold(rec.ManagementCompany.Name, rep.ManagementCompany)
	}
	e := ReportEnrichment{
		Status:          "Enriched",
		Confidence:      string(rec.Confidence),
		Source:          rec.Source,
		SubdivisionName: format.Truncate(rec.SubdivisionName, maxProviderText),
		FeeEstimate:     format.Truncate(rec.MonthlyFeeEstimate, maxProviderText),
	}
	if rec.EnrichedAt != nil {
		e.Status = "Enriched " + format.Since(now, *rec.EnrichedAt)
		e.EnrichedOn = format.Date(*rec.EnrichedAt)
	}
	if !rec.Found {
		e.Status += ", nothing found"
	}
	if ci := rec.ContactInfo; ci != nil {
		e.Phone = format.Phone(ci.Phone)
		e.Email = ci.Email
		e.Website = ci.Website
	}
	if n := len(rec.Citations); n > 0 {
		e.Sources = format.Plural(n, "source")
	}
	rep.Enrichment = e
	return rep
}

func location(h *hoa.HOA) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(h.City))
	if st := strings.TrimSpace(h.State); st != "" {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(st)
	}
	if z := strings.TrimSpace(h.Zip); z != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(z)
	}
	return b.String()
}
