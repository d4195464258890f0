package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrProviderUnavailable stops a bulk run after too many consecutive
// provider failures, so an outage does not mark every HOA as failed.
var ErrProviderUnavailable = errors.New("provider failing repeatedly; bulk run aborted")

type Candidates interface {
	ListEnrichmentCandidates(ctx context.Context, staleBefore time.Time, limit int) ([]string, error)
}

type BulkConfig struct {
	BatchSize            int
	Interval             time.Duration
	PauseBetweenRequests time.Duration
	RequestTimeout       time.Duration
	MaxConsecutiveFails  int
}

type BulkStats struct {
	Attempted      int
	Found          int
	NotFound       int
	ProviderFailed int
	Errors         int
}

// BulkJob refreshes HOAs whose enrichment is missing or stale.
type BulkJob struct {
	Workflow   *Workflow
	Candidates Candidates
	Log        *zap.Logger
	Config     BulkConfig
}

func (j *BulkJob) validate() error {
	if j == nil {
		return errors.New("nil bulk job")
	}
	if j.Workflow == nil {
		return errors.New("bulk enrichment job missing workflow")
	}
	if j.Candidates == nil {
		return errors.New("bulk enrichment job missing candidate source")
	}
	if j.Log == nil {
		j.Log = zap.NewNop()
	}
	return nil
}

func (j *BulkJob) Run(ctx context.Context) error {
	if err := j.validate(); err != nil {
		return err
	}
	interval := j.Config.Interval
	if interval <= 0 {
		_, err := j.RunOnce(ctx)
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	j.Log.Info("bulk enrichment job starting", zap.Duration("interval", interval))
	if _, err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		j.Log.Error("bulk enrichment initial run failed", zap.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			j.Log.Info("bulk enrichment job stopping", zap.Error(ctx.Err()))
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				j.Log.Error("bulk enrichment iteration failed", zap.Error(err))
			}
		}
	}
}

// RunOnce enriches one batch of candidates without forcing.
func (j *BulkJob) RunOnce(ctx context.Context) (BulkStats, error) {
	var stats BulkStats
	if err := j.validate(); err != nil {
		return stats, err
	}
	batch := j.Config.BatchSize
	if batch <= 0 {
		batch = 50
	}
	timeout := j.Config.RequestTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	maxFails := j.Config.MaxConsecutiveFails
	if maxFails <= 0 {
		maxFails = 5
	}

	ids, err := j.Candidates.ListEnrichmentCandidates(ctx, j.Workflow.Policy.StaleBefore(j.Workflow.now()), batch)
	if err != nil {
		return stats, fmt.Errorf("list candidates: %w", err)
	}
	consecutive := 0
	for i, id := range ids {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		res, err := j.Workflow.Enrich(reqCtx, id, false)
		cancel()
		stats.Attempted++
		switch {
		case err != nil:
			stats.Errors++
			j.Log.Warn("bulk enrichment failed", zap.String("hoa_id", id), zap.Error(err))
		case res.ProviderFailed:
			stats.ProviderFailed++
		case res.Found:
			stats.Found++
		default:
			stats.NotFound++
		}
		if res.ProviderFailed {
			consecutive++
			if consecutive >= maxFails {
				return stats, ErrProviderUnavailable
			}
		} else {
			consecutive = 0
		}
		if j.Config.PauseBetweenRequests > 0 && i < len(ids)-1 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(j.Config.PauseBetweenRequests):
			}
		}
	}
	if stats.Attempted > 0 {
		j.Log.Info("bulk enrichment batch done",
			zap.Int("attempted", stats.Attempted), zap.Int("found", stats.Found),
			zap.Int("not_found", stats.NotFound), zap.Int("provider_failed", stats.ProviderFailed),
			zap.Int("errors", stats.Errors))
	}
	return stats, nil
}
