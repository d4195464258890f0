package pagecache

import (
	"context"

	"github.com/yourorg/hoa-scout/internal/events"
	"go.uber.org/zap"
)

// Watcher drops cached report pages when an HOA update is published.
type Watcher struct {
	Pub   events.Publisher
	Cache *Cache
	Log   *zap.Logger
}

func (w *Watcher) Run(ctx context.Context) error {
	sub := w.Pub.SubscribeHOAUpdated()
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-sub:
			if err := w.Cache.Invalidate(ctx, ReportPath(evt.HOAID)); err != nil {
				w.Log.Warn("report cache invalidation failed",
					zap.String("hoa_id", evt.HOAID), zap.String("reason", evt.Reason), zap.Error(err))
				continue
			}
			w.Log.Debug("report cache invalidated", zap.String("hoa_id", evt.HOAID), zap.String("reason", evt.Reason))
		}
	}
}
