package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/hoa-scout/internal/events"
	"github.com/yourorg/hoa-scout/internal/hoa"
	"github.com/yourorg/hoa-scout/internal/metrics"
	"github.com/yourorg/hoa-scout/internal/store"
	"go.uber.org/zap/zaptest"
)

type fakeStore struct {
	mu        sync.Mutex
	hoas      map[string]*hoa.HOA
	getErr    error
	updateErr error
	updates   []store.EnrichmentUpdate
}

func newFakeStore(hs ...*hoa.HOA) *fakeStore {
	fs := &fakeStore{hoas: map[string]*hoa.HOA{}}
	for _, h := range hs {
		fs.hoas[h.ID] = h
	}
	return fs
}

func (f *fakeStore) GetHOA(_ context.Context, id string) (*hoa.HOA, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	h, ok := f.hoas[id]
	if !ok {
		return nil, hoa.ErrNotFound
	}
	cp := *h
	cp.PublicRecords = h.PublicRecords.Clone()
	return &cp, nil
}

func (f *fakeStore) UpdateEnrichment(_ context.Context, id string, in store.EnrichmentUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, in)
	h := f.hoas[id]
	h.PublicRecords = in.Records
	if in.ManagementCompany != nil {
		h.ManagementCompany = in.ManagementCompany
	}
	if in.MonthlyFee != nil {
		h.MonthlyFee = in.MonthlyFee
	}
	return nil
}

type fakeProvider struct {
	calls     int
	res       hoa.LookupResult
	err       error
	panicWith any
	lastQuery hoa.LookupQuery
}

func (p *fakeProvider) LookupHOA(_ context.Context, q hoa.LookupQuery) (hoa.LookupResult, error) {
	p.calls++
	p.lastQuery = q
	if p.panicWith != nil {
		panic(p.panicWith)
	}
	return p.res, p.err
}

func (p *fakeProvider) Source() string { return "Test Search" }

type fakePages struct{ paths []string }

func (p *fakePages) Invalidate(_ context.Context, path string) error {
	p.paths = append(p.paths, path)
	return nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newWorkflow(t *testing.T, st *fakeStore, p *fakeProvider) (*Workflow, *fakePages, *clock) {
	t.Helper()
	pages := &fakePages{}
	c := &clock{t: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)}
	return &Workflow{
		Store:    st,
		Provider: p,
		Pages:    pages,
		Now:      c.Now,
		Log:      zaptest.NewLogger(t),
		Metrics:  metrics.New(),
	}, pages, c
}

func sp(s string) *string { return &s }

func TestEnrich_NotFoundPerformsNoWrites(t *testing.T) {
	st := newFakeStore()
	p := &fakeProvider{}
	w, pages, _ := newWorkflow(t, st, p)

	res, err := w.Enrich(context.Background(), "missing", true)
	require.ErrorIs(t, err, hoa.ErrNotFound)
	assert.Empty(t, st.updates)
	assert.Zero(t, p.calls)
	assert.Empty(t, pages.paths)

	out := Outcome(res, err)
	assert.False(t, out.Success)
	assert.Equal(t, "HOA not found", out.Error)
}

func TestEnrich_BlankIDIsValidationError(t *testing.T) {
	w, _, _ := newWorkflow(t, newFakeStore(), &fakeProvider{})
	_, err := w.Enrich(context.Background(), "  ", false)
	var verr *hoa.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestEnrich_FreshRecordIsServedFromStore(t *testing.T) {
	enrichedAt := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	st := newFakeStore(&hoa.HOA{ID: "h1", Name: "Oak Ridge", PublicRecords: &hoa.PublicRecords{
		Enriched: true, EnrichedAt: &enrichedAt, Found: true, Confidence: hoa.ConfidenceMedium,
	}})
	p := &fakeProvider{}
	w, _, _ := newWorkflow(t, st, p)

	res, err := w.Enrich(context.Background(), "h1", false)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Cached)
	assert.True(t, res.Found)
	assert.Equal(t, hoa.ConfidenceMedium, res.Data.Confidence)
	assert.Zero(t, p.calls)
	assert.Empty(t, st.updates)
	assert.InDelta(t, 1, testutil.ToFloat64(w.Metrics.EnrichmentRuns.WithLabelValues(metrics.OutcomeCached)), 0)
}

func TestEnrich_ForceAlwaysCallsProvider(t *testing.T) {
	enrichedAt := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	st := newFakeStore(&hoa.HOA{ID: "h1", Name: "Oak Ridge", PublicRecords: &hoa.PublicRecords{Enriched: true, EnrichedAt: &enrichedAt}})
	p := &fakeProvider{res: hoa.LookupResult{Success: true, Found: true, Website: "https://oak.example"}}
	w, _, _ := newWorkflow(t, st, p)

	res, err := w.Enrich(context.Background(), "h1", true)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.True(t, res.Found)
	assert.Equal(t, 1, p.calls)
	require.Len(t, st.updates, 1)
}

func TestEnrich_MergesAndInvalidatesReportPage(t *testing.T) {
	st := newFakeStore(&hoa.HOA{
		ID: "h1", Name: " Oak  Ridge ", Address: "1 Main St", City: "Austin", State: "Texas", Zip: "78701-0001",
		ManagementCompany: sp("Existing Mgmt"),
	})
	p := &fakeProvider{res: hoa.LookupResult{
		Success:           true,
		Found:             true,
		ManagementCompany: "New Mgmt",
		MonthlyFee:        "$1,250.50 per month",
		Citations:         []string{"https://a.example"},
	}}
	w, pages, c := newWorkflow(t, st, p)

	res, err := w.Enrich(context.Background(), "h1", false)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Found)

	assert.Equal(t, hoa.LookupQuery{Name: "Oak Ridge", Address: "1 Main St", City: "Austin", State: "TX", Zip: "78701"}, p.lastQuery)

	require.Len(t, st.updates, 1)
	up := st.updates[0]
	assert.Nil(t, up.ManagementCompany, "stored company must not be replaced")
	require.NotNil(t, up.MonthlyFee)
	assert.InDelta(t, 1250.50, *up.MonthlyFee, 0.001)
	assert.Equal(t, &hoa.ManagementCompany{Name: "New Mgmt", Verified: true}, up.Records.ManagementCompany)
	assert.Equal(t, "Test Search", up.Records.Source)
	assert.Equal(t, c.t, *up.Records.EnrichedAt)

	assert.Equal(t, []string{"/hoa/h1"}, pages.paths)
}

func TestEnrich_PublishesSavedEnrichment(t *testing.T) {
	enrichedAt := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	st := newFakeStore(
		&hoa.HOA{ID: "h1", Name: "Oak Ridge"},
		&hoa.HOA{ID: "h2", Name: "Elm Park", PublicRecords: &hoa.PublicRecords{Enriched: true, EnrichedAt: &enrichedAt}},
	)
	p := &fakeProvider{res: hoa.LookupResult{Success: true, Found: true}}
	w, _, _ := newWorkflow(t, st, p)
	pub := events.NewInMemory(4)
	w.Pub = pub

	_, err := w.Enrich(context.Background(), "h2", false)
	require.NoError(t, err)
	_, err = w.Enrich(context.Background(), "h1", false)
	require.NoError(t, err)

	select {
	case evt := <-pub.SubscribeHOAUpdated():
		assert.Equal(t, events.HOAUpdated{HOAID: "h1", Reason: events.ReasonEnriched}, evt)
	default:
		t.Fatal("expected an update for the saved enrichment")
	}
	select {
	case evt := <-pub.SubscribeHOAUpdated():
		t.Fatalf("unexpected update %+v", evt)
	default:
	}
}

func TestEnrich_PersistenceFailurePublishesNothing(t *testing.T) {
	st := newFakeStore(&hoa.HOA{ID: "h1", Name: "Oak Ridge"})
	st.updateErr = errors.New("connection refused")
	w, _, _ := newWorkflow(t, st, &fakeProvider{res: hoa.LookupResult{Success: true}})
	pub := events.NewInMemory(1)
	w.Pub = pub

	_, err := w.Enrich(context.Background(), "h1", false)
	require.ErrorIs(t, err, ErrPersistence)
	assert.Empty(t, pub.SubscribeHOAUpdated())
}

func TestEnrich_ProviderFailureIsPersistedAndSuppressesRetry(t *testing.T) {
	st := newFakeStore(&hoa.HOA{ID: "h1", Name: "Oak Ridge"})
	p := &fakeProvider{err: errors.New("upstream 503")}
	w, pages, c := newWorkflow(t, st, p)

	res, err := w.Enrich(context.Background(), "h1", false)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Found)
	assert.True(t, res.ProviderFailed)
	require.Len(t, st.updates, 1)
	rec := st.updates[0].Records
	assert.True(t, rec.Enriched)
	assert.Equal(t, hoa.ConfidenceLow, rec.Confidence)
	assert.Equal(t, "Test Search (Failed)", rec.Source)
	assert.Equal(t, "upstream 503", rec.Error)
	assert.Equal(t, []string{"/hoa/h1"}, pages.paths)

	c.t = c.t.Add(29 * 24 * time.Hour)
	res, err = w.Enrich(context.Background(), "h1", false)
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.False(t, res.Found)
	assert.Equal(t, 1, p.calls)

	c.t = c.t.Add(2 * 24 * time.Hour)
	_, err = w.Enrich(context.Background(), "h1", false)
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls)
}

func TestEnrich_UnsuccessfulLookupWithoutErrorCountsAsFailure(t *testing.T) {
	st := newFakeStore(&hoa.HOA{ID: "h1", Name: "Oak Ridge"})
	p := &fakeProvider{res: hoa.LookupResult{Success: false}}
	w, _, _ := newWorkflow(t, st, p)

	res, err := w.Enrich(context.Background(), "h1", false)
	require.NoError(t, err)
	assert.True(t, res.ProviderFailed)
	assert.Equal(t, "Test Search (Failed)", st.updates[0].Records.Source)
}

func TestEnrich_PersistenceFailure(t *testing.T) {
	st := newFakeStore(&hoa.HOA{ID: "h1", Name: "Oak Ridge"})
	st.updateErr = errors.New("connection refused")
	p := &fakeProvider{res: hoa.LookupResult{Success: true, Found: true, Phone: "555"}}
	w, pages, _ := newWorkflow(t, st, p)

	res, err := w.Enrich(context.Background(), "h1", false)
	require.ErrorIs(t, err, ErrPersistence)
	assert.Empty(t, pages.paths)

	out := Outcome(res, err)
	assert.False(t, out.Success)
	assert.Equal(t, "failed to save enrichment data", out.Error)
}

func TestEnrich_LoadFailureIsNotNotFound(t *testing.T) {
	st := newFakeStore()
	st.getErr = errors.New("timeout")
	w, _, _ := newWorkflow(t, st, &fakeProvider{})

	_, err := w.Enrich(context.Background(), "h1", false)
	require.Error(t, err)
	assert.False(t, errors.Is(err, hoa.ErrNotFound))
	assert.Equal(t, "enrichment failed", Outcome(Result{}, err).Error)
}

func TestEnrich_RecoversPanics(t *testing.T) {
	st := newFakeStore(&hoa.HOA{ID: "h1", Name: "Oak Ridge"})
	w, _, _ := newWorkflow(t, st, &fakeProvider{panicWith: "nil map"})

	res, err := w.Enrich(context.Background(), "h1", false)
	require.ErrorIs(t, err, ErrUnexpected)
	assert.False(t, res.Success)
	assert.Empty(t, st.updates)
	assert.InDelta(t, 1, testutil.ToFloat64(w.Metrics.EnrichmentRuns.WithLabelValues(metrics.OutcomeError)), 0)
}

func TestStatus(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	st := newFakeStore(
		&hoa.HOA{ID: "h1", PublicRecords: &hoa.PublicRecords{
			Enriched: true, EnrichedAt: &at, Found: true, Confidence: hoa.ConfidenceHigh, Source: "Test Search",
			ManagementCompany: &hoa.ManagementCompany{Name: "Acme", Verified: true},
			ContactInfo:       &hoa.ContactInfo{Phone: "555"},
			SubdivisionName:   "Phase 2",
			RawResponse:       []byte(`{"big":"payload"}`),
		}},
		&hoa.HOA{ID: "h2"},
	)
	w, _, _ := newWorkflow(t, st, &fakeProvider{})

	s := w.Status(context.Background(), "h1")
	assert.Equal(t, Status{
		Enriched: true, EnrichedAt: &at, Found: true, Confidence: hoa.ConfidenceHigh,
		ManagementCompany: &hoa.ManagementCompany{Name: "Acme", Verified: true},
		ContactInfo:       &hoa.ContactInfo{Phone: "555"},
		SubdivisionName:   "Phase 2", Source: "Test Search",
	}, s)

	assert.Equal(t, Status{}, w.Status(context.Background(), "h2"))
	assert.Equal(t, Status{}, w.Status(context.Background(), "missing"))
}
