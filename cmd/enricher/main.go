// Command enricher refreshes HOA enrichment in the background, one batch of
// never-enriched or stale HOAs per interval.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourorg/hoa-scout/internal/config"
	"github.com/yourorg/hoa-scout/internal/enrich"
	"github.com/yourorg/hoa-scout/internal/hoa"
	"github.com/yourorg/hoa-scout/internal/logger"
	"github.com/yourorg/hoa-scout/internal/metrics"
	"github.com/yourorg/hoa-scout/internal/pagecache"
	"github.com/yourorg/hoa-scout/internal/redisx"
	"github.com/yourorg/hoa-scout/internal/store"
	"github.com/yourorg/hoa-scout/perplexity"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "enricher:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	log = log.Named("enricher")
	defer func() { _ = log.Sync() }()

	st, err := store.Open(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := st.Ping(ctx); err != nil {
		cancel()
		return fmt.Errorf("ping database: %w", err)
	}
	if cfg.Database.Migrate {
		if err := st.Migrate(ctx); err != nil {
			cancel()
			return fmt.Errorf("migrate: %w", err)
		}
	}
	cancel()

	var pages *pagecache.Cache
	if cfg.Redis.Addr != "" {
		rc := redisx.New(redisx.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rc.Close()
		pages = pagecache.New(rc, cfg.Cache.ReportTTL)
	}

	wf := &enrich.Workflow{
		Store: st,
		Provider: perplexity.NewClient(perplexity.Config{
			APIKey:            cfg.Perplexity.APIKey,
			BaseURL:           cfg.Perplexity.BaseURL,
			Model:             cfg.Perplexity.Model,
			Timeout:           cfg.Perplexity.Timeout,
			MaxRetries:        cfg.Perplexity.MaxRetries,
			RequestsPerSecond: cfg.Perplexity.RequestsPerSecond,
			Logger:            log,
		}),
		Pages:   pages,
		Policy:  hoa.FreshnessPolicy{Window: cfg.Cache.EnrichmentFreshness},
		Log:     log,
		Metrics: metrics.New(),
	}
	job := &enrich.BulkJob{
		Workflow:   wf,
		Candidates: st,
		Log:        log,
		Config: enrich.BulkConfig{
			BatchSize:            cfg.Enricher.BatchSize,
			Interval:             cfg.Enricher.Interval,
			PauseBetweenRequests: cfg.Enricher.Pause,
			RequestTimeout:       cfg.Perplexity.Timeout * time.Duration(cfg.Perplexity.MaxRetries+1),
		},
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Enricher.RunOnce {
		stats, err := job.RunOnce(rootCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("bulk run failed: %w", err)
		}
		log.Info("bulk run complete", zap.Int("attempted", stats.Attempted), zap.Int("found", stats.Found))
		return nil
	}
	if err := job.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bulk job stopped: %w", err)
	}
	return nil
}
