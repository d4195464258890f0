package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/hoa-scout/internal/hoa"
	"go.uber.org/zap/zaptest"
)

type fakeCandidates struct {
	ids         []string
	err         error
	staleBefore time.Time
	limit       int
}

func (f *fakeCandidates) ListEnrichmentCandidates(_ context.Context, staleBefore time.Time, limit int) ([]string, error) {
	f.staleBefore, f.limit = staleBefore, limit
	return f.ids, f.err
}

func TestBulkJob_RunOnceCountsOutcomes(t *testing.T) {
	st := newFakeStore(&hoa.HOA{ID: "a", Name: "Alpha"}, &hoa.HOA{ID: "b", Name: "Beta"})
	p := &fakeProvider{res: hoa.LookupResult{Success: true, Found: true, ManagementCompany: "Acme"}}
	w, _, c := newWorkflow(t, st, p)
	cands := &fakeCandidates{ids: []string{"a", "missing", "b"}}

	job := &BulkJob{Workflow: w, Candidates: cands, Log: zaptest.NewLogger(t), Config: BulkConfig{BatchSize: 10}}
	stats, err := job.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, BulkStats{Attempted: 3, Found: 2, Errors: 1}, stats)
	assert.Equal(t, 10, cands.limit)
	assert.Equal(t, c.t.Add(-hoa.DefaultFreshnessWindow), cands.staleBefore)
	assert.Equal(t, 2, p.calls)
}

func TestBulkJob_AbortsAfterConsecutiveProviderFailures(t *testing.T) {
	st := newFakeStore(
		&hoa.HOA{ID: "a", Name: "Alpha"}, &hoa.HOA{ID: "b", Name: "Beta"},
		&hoa.HOA{ID: "c", Name: "Gamma"}, &hoa.HOA{ID: "d", Name: "Delta"},
	)
	p := &fakeProvider{err: errors.New("503")}
	w, _, _ := newWorkflow(t, st, p)

	job := &BulkJob{
		Workflow:   w,
		Candidates: &fakeCandidates{ids: []string{"a", "b", "c", "d"}},
		Config:     BulkConfig{MaxConsecutiveFails: 2},
	}
	stats, err := job.RunOnce(context.Background())
	require.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, 2, stats.ProviderFailed)
	assert.Equal(t, 2, p.calls)
}

func TestBulkJob_CandidateError(t *testing.T) {
	w, _, _ := newWorkflow(t, newFakeStore(), &fakeProvider{})
	job := &BulkJob{Workflow: w, Candidates: &fakeCandidates{err: errors.New("db down")}}

	_, err := job.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list candidates")
}

func TestBulkJob_RequiresDependencies(t *testing.T) {
	_, err := (&BulkJob{}).RunOnce(context.Background())
	require.Error(t, err)

	w, _, _ := newWorkflow(t, newFakeStore(), &fakeProvider{})
	_, err = (&BulkJob{Workflow: w}).RunOnce(context.Background())
	require.Error(t, err)
}

func TestBulkJob_RunStopsOnCancel(t *testing.T) {
	w, _, _ := newWorkflow(t, newFakeStore(), &fakeProvider{})
	job := &BulkJob{Workflow: w, Candidates: &fakeCandidates{}, Config: BulkConfig{Interval: time.Hour}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- job.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
