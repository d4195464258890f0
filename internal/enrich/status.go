package enrich

import (
	"context"
	"time"

	"github.com/yourorg/hoa-scout/internal/hoa"
	"go.uber.org/zap"
)

// Status is the read-only view of an HOA's stored enrichment.
type Status struct {
	Enriched          bool                   `json:"enriched"`
	EnrichedAt        *time.Time             `json:"enrichedAt"`
	Found             bool                   `json:"found"`
	Confidence        hoa.Confidence         `json:"confidence,omitempty"`
	ManagementCompany *hoa.ManagementCompany `json:"managementCompany"`
	ContactInfo       *hoa.ContactInfo       `json:"contactInfo"`
	SubdivisionName   string                 `json:"subdivisionName,omitempty"`
	Source            string                 `json:"source,omitempty"`
}

// Status never fails: lookup errors yield the "not enriched" zero value.
func (w *Workflow) Status(ctx context.Context, id string) Status {
	h, err := w.Store.GetHOA(ctx, id)
	if err != nil {
		w.log().Debug("enrichment status lookup failed", zap.String("hoa_id", id), zap.Error(err))
		return Status{}
	}
	rec := h.PublicRecords
	if rec == nil {
		return Status{}
	}
	return Status{
		Enriched:          rec.Enriched,
		EnrichedAt:        rec.EnrichedAt,
		Found:             rec.Found,
		Confidence:        rec.Confidence,
		ManagementCompany: rec.ManagementCompany,
		ContactInfo:       rec.ContactInfo,
		SubdivisionName:   rec.SubdivisionName,
		Source:            rec.Source,
	}
}
