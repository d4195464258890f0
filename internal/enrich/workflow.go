// Package enrich fills HOA records with facts found by the web-search
// provider and reports on the stored enrichment.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yourorg/hoa-scout/internal/canon"
	"github.com/yourorg/hoa-scout/internal/events"
	"github.com/yourorg/hoa-scout/internal/hoa"
	"github.com/yourorg/hoa-scout/internal/metrics"
	"github.com/yourorg/hoa-scout/internal/pagecache"
	"github.com/yourorg/hoa-scout/internal/store"
	"go.uber.org/zap"
)

var (
	// ErrPersistence wraps failures writing the enrichment back.
	ErrPersistence = errors.New("enrichment could not be saved")
	// ErrUnexpected wraps a panic recovered inside the workflow.
	ErrUnexpected              = errors.New("unexpected enrichment failure")
	errProviderReportedFailure = errors.New("provider reported an unsuccessful lookup")
)

type Store interface {
	GetHOA(ctx context.Context, id string) (*hoa.HOA, error)
	UpdateEnrichment(ctx context.Context, id string, in store.EnrichmentUpdate) error
}

type Provider interface {
	LookupHOA(ctx context.Context, q hoa.LookupQuery) (hoa.LookupResult, error)
	Source() string
}

type Invalidator interface {
	Invalidate(ctx context.Context, path string) error
}

// Result is the outcome of one Enrich call in the shape callers serialize.
type Result struct {
	Success bool               `json:"success"`
	Cached  bool               `json:"cached"`
	Data    *hoa.PublicRecords `json:"data,omitempty"`
	Found   bool               `json:"found"`
	Error   string             `json:"error,omitempty"`

	// ProviderFailed is set when the lookup failed and a failed attempt was stored.
	ProviderFailed bool `json:"-"`
}

type Workflow struct {
	Store    Store
	Provider Provider
	Pages    Invalidator
	Policy   hoa.FreshnessPolicy
	Now      func() time.Time
	Log      *zap.Logger
	Metrics  *metrics.Metrics

	// Pub, when set, is told about every saved enrichment.
	Pub events.Publisher
}

func (w *Workflow) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Workflow) log() *zap.Logger {
	if w.Log != nil {
		return w.Log
	}
	return zap.NewNop()
}

// Enrich loads the HOA, reuses fresh enrichment unless force is set, and
// otherwise asks the provider, merges and saves the answer and drops the
// cached report page. A provider failure is not an error: it is stored as
// a low-confidence attempt and reported with Found=false.
func (w *Workflow) Enrich(ctx context.Context, id string, force bool) (res Result, err error) {
	outcome := metrics.OutcomeError
	defer func() {
		if r := recover(); r != nil {
			w.log().Error("enrichment panicked", zap.String("hoa_id", id), zap.Any("panic", r), zap.Stack("stack"))
			res, err = Result{}, fmt.Errorf("%w: %v", ErrUnexpected, r)
			outcome = metrics.OutcomeError
		}
		if w.Metrics != nil {
			w.Metrics.EnrichmentRuns.WithLabelValues(outcome).Inc()
		}
	}()

	id = strings.TrimSpace(id)
	if id == "" {
		return Result{}, &hoa.ValidationError{Field: "id", Message: "hoa id is required"}
	}
	h, err := w.Store.GetHOA(ctx, id)
	if err != nil {
		if errors.Is(err, hoa.ErrNotFound) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("load hoa %s: %w", id, err)
	}

	now := w.now()
	if !force && w.Policy.IsFresh(now, h.PublicRecords) {
		outcome = metrics.OutcomeCached
		return Result{Success: true, Cached: true, Data: h.PublicRecords, Found: h.PublicRecords.Found}, nil
	}

	q := canon.Query(hoa.LookupQuery{Name: h.Name, Address: h.Address, City: h.City, State: h.State, Zip: h.Zip})
	start := time.Now()
	lookup, lerr := w.Provider.LookupHOA(ctx, q)
	if w.Metrics != nil {
		w.Metrics.ProviderDuration.Observe(time.Since(start).Seconds())
	}
	if lerr == nil && !lookup.Success {
		lerr = errProviderReportedFailure
	}

	var update store.EnrichmentUpdate
	if lerr != nil {
		w.log().Warn("provider lookup failed",
			zap.String("hoa_id", id), zap.String("provider", w.Provider.Source()), zap.Error(lerr))
		update.Records = hoa.FailedAttempt(h, lerr, now, w.Provider.Source())
		lookup = hoa.LookupResult{}
	} else {
		m := hoa.Merge(h, lookup, now, w.Provider.Source())
		update = store.EnrichmentUpdate{Records: m.Records, ManagementCompany: m.ManagementCompany, MonthlyFee: m.MonthlyFee}
	}

	if err := w.Store.UpdateEnrichment(ctx, id, update); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if w.Pages != nil {
		if err := w.Pages.Invalidate(ctx, pagecache.ReportPath(id)); err != nil {
			w.log().Warn("report cache invalidation failed", zap.String("hoa_id", id), zap.Error(err))
		}
	}
	if w.Pub != nil {
		w.Pub.PublishHOAUpdated(ctx, events.HOAUpdated{HOAID: id, Reason: events.ReasonEnriched})
	}

	switch {
	case lerr != nil:
		outcome = metrics.OutcomeProviderFailed
	case lookup.Found:
		outcome = metrics.OutcomeFound
	default:
		outcome = metrics.OutcomeNotFound
	}
	w.log().Info("hoa enriched",
		zap.String("hoa_id", id), zap.Bool("force", force), zap.Bool("found", lookup.Found),
		zap.String("confidence", string(update.Records.Confidence)))
	return Result{Success: true, Data: update.Records, Found: lookup.Found, ProviderFailed: lerr != nil}, nil
}

// Outcome folds an Enrich error into the structured failure shape.
func Outcome(res Result, err error) Result {
	if err == nil {
		return res
	}
	msg := "enrichment failed"
	var verr *hoa.ValidationError
	switch {
	case errors.As(err, &verr):
		msg = verr.Error()
	case errors.Is(err, hoa.ErrNotFound):
		msg = "HOA not found"
	case errors.Is(err, ErrPersistence):
		msg = "failed to save enrichment data"
	}
	return Result{Success: false, Error: msg}
}
