// Package analysis scores HOAs in the background and tracks the tasks that
// do it.
package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/yourorg/hoa-scout/internal/events"
	"github.com/yourorg/hoa-scout/internal/hoa"
)

// Analyzer runs the analysis for one HOA and persists its result.
type Analyzer interface {
	Analyze(ctx context.Context, hoaID string) error
}

type ScoreStore interface {
	GetHOA(ctx context.Context, id string) (*hoa.HOA, error)
	SetScore(ctx context.Context, id string, score float64) error
}

// ScoreAnalyzer derives overall_score from the facts already stored for an
// HOA. Pub is optional.
type ScoreAnalyzer struct {
	Store ScoreStore
	Pub   events.Publisher
}

func (a *ScoreAnalyzer) Analyze(ctx context.Context, hoaID string) error {
	h, err := a.Store.GetHOA(ctx, hoaID)
	if err != nil {
		return fmt.Errorf("load hoa: %w", err)
	}
	if err := a.Store.SetScore(ctx, hoaID, Score(h)); err != nil {
		return fmt.Errorf("save score: %w", err)
	}
	if a.Pub != nil {
		a.Pub.PublishHOAUpdated(ctx, events.HOAUpdated{HOAID: hoaID, Reason: events.ReasonAnalyzed})
	}
	return nil
}

// Score returns a 0-100 rating. Cheaper dues, a known management company and
// well-sourced enrichment all raise it.
func Score(h *hoa.HOA) float64 {
	s := 50.0
	if h.MonthlyFee != nil {
		switch fee := *h.MonthlyFee; {
		case fee <= 100:
			s += 20
		case fee <= 300:
			s += 10
		case fee <= 600:
		default:
			s -= 10
		}
	}
	if strings.TrimSpace(h.StoredManagementCompany()) != "" {
		s += 15
	}
	if rec := h.PublicRecords; rec != nil && rec.Found {
		switch rec.Confidence {
		case hoa.ConfidenceHigh:
			s += 15
		case hoa.ConfidenceMedium:
			s += 8
		}
		if rec.ManagementCompany != nil && rec.ManagementCompany.Verified {
			s += 5
		}
	}
	s = math.Max(0, math.Min(100, s))
	return math.Round(s*10) / 10
}
