package relay

import (
	"context"
	"log/slog"
	"time"
)

// RevisionSource exposes a monotonically increasing write counter. Both cache
// implementations satisfy it.
type RevisionSource interface {
	Revision(ctx context.Context) (int64, error)
}

// Watcher polls a cache's revision and publishes a refresh event whenever
// another process has written the collection. This is the cross-process
// counterpart to the Hub's same-process events.
type Watcher struct {
	Source   RevisionSource
	Hub      *Hub
	Interval time.Duration
	Logger   *slog.Logger

	last int64
}

func NewWatcher(source RevisionSource, hub *Hub, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{Source: source, Hub: hub, Interval: interval}
}

// Run polls until the context is cancelled. The first observation only
// records the baseline; refresh events fire on subsequent changes.
func (w *Watcher) Run(ctx context.Context) error {
	log := w.Logger
	if log == nil {
		log = slog.Default()
	}

	rev, err := w.Source.Revision(ctx)
	if err == nil {
		w.last = rev
	} else {
		log.Warn("cache revision read failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rev, err := w.Source.Revision(ctx)
			if err != nil {
				log.Warn("cache revision read failed", slog.String("error", err.Error()))
				continue
			}
			if rev != w.last {
				w.last = rev
				w.Hub.Publish(Event{Type: EventCacheRefresh})
			}
		}
	}
}
