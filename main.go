package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/yourorg/hoa-scout/http"
	"github.com/yourorg/hoa-scout/internal/analysis"
	"github.com/yourorg/hoa-scout/internal/cities"
	"github.com/yourorg/hoa-scout/internal/config"
	"github.com/yourorg/hoa-scout/internal/enrich"
	"github.com/yourorg/hoa-scout/internal/events"
	"github.com/yourorg/hoa-scout/internal/hoa"
	"github.com/yourorg/hoa-scout/internal/logger"
	"github.com/yourorg/hoa-scout/internal/metrics"
	"github.com/yourorg/hoa-scout/internal/pagecache"
	"github.com/yourorg/hoa-scout/internal/redisx"
	"github.com/yourorg/hoa-scout/internal/store"
	"github.com/yourorg/hoa-scout/perplexity"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "hoa-scout:", err)
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
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = st.Ping(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if cfg.Database.Migrate {
		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	m := metrics.New()
	pages := openPageCache(ctx, cfg, log)

	px := perplexity.NewClient(perplexity.Config{
		APIKey:            cfg.Perplexity.APIKey,
		BaseURL:           cfg.Perplexity.BaseURL,
		Model:             cfg.Perplexity.Model,
		Timeout:           cfg.Perplexity.Timeout,
		MaxRetries:        cfg.Perplexity.MaxRetries,
		RequestsPerSecond: cfg.Perplexity.RequestsPerSecond,
		Logger:            log,
	})
	pub := events.NewInMemory(256)
	wf := &enrich.Workflow{
		Store:    st,
		Provider: px,
		Pages:    pages,
		Pub:      pub,
		Policy:   hoa.FreshnessPolicy{Window: cfg.Cache.EnrichmentFreshness},
		Log:      log.Named("enrich"),
		Metrics:  m,
	}

	queue := analysis.New(analysis.Config{
		Capacity: cfg.Analysis.QueueSize,
		Workers:  cfg.Analysis.Workers,
		Timeout:  cfg.Analysis.Timeout,
	}, &analysis.ScoreAnalyzer{Store: st, Pub: pub}, log.Named("analysis"), m)

	httpLog := log.Named("http")
	router := BuildRouter(RouterDeps{
		Log:                httpLog,
		Metrics:            m,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		Ping:               st.Ping,
		Cities:             httpapi.CitiesDeps{Cities: cities.New(st.DistinctCities, cfg.Cache.CitiesTTL), Metrics: m, Log: httpLog},
		Search:             httpapi.SearchDeps{Store: st, Log: httpLog},
		Analysis:           httpapi.AnalysisDeps{Queue: queue, Scores: st, Log: httpLog},
		Enrich:             httpapi.EnrichDeps{Enricher: wf, Log: httpLog},
		Report:             httpapi.ReportDeps{Store: st, Pages: pages, Log: httpLog},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("hoa-scout listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return (&pagecache.Watcher{Pub: pub, Cache: pages, Log: log.Named("pagecache")}).Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		if qerr := queue.Close(sctx); qerr != nil {
			log.Warn("analysis queue did not drain", zap.Error(qerr))
		}
		return err
	})
	return g.Wait()
}

// openPageCache returns nil when Redis is not configured or unreachable;
// reports are then built on every request.
func openPageCache(ctx context.Context, cfg *config.Config, log *zap.Logger) *pagecache.Cache {
	if cfg.Redis.Addr == "" {
		return nil
	}
	rc := redisx.New(redisx.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pctx); err != nil {
		log.Warn("redis unavailable, report cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = rc.Close()
		return nil
	}
	return pagecache.New(rc, cfg.Cache.ReportTTL)
}
