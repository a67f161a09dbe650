// Package cleanup provides background worker
package cleanup

import (
	"context"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
)

// Purger drops expired entries and reports how many it removed.
type Purger interface {
	PurgeExpired() int
}

// Worker handles background cache cleanup operations
type Worker struct {
	name     string
	store    Purger
	interval time.Duration
	logger   *logging.ChanneledLogger
}

// NewWorker creates a new cleanup worker for store.
func NewWorker(name string, store Purger, interval time.Duration, logger *logging.ChanneledLogger) *Worker {
	return &Worker{name: name, store: store, interval: interval, logger: logger}
}

// Start begins the cleanup worker routine, using the configured interval.
// It returns when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.System().Info("Cleanup worker started", "store", w.name, "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown().Info("Cleanup worker stopping", "store", w.name)
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce performs a single cleanup pass.
func (w *Worker) RunOnce() int {
	start := time.Now()
	cleaned := w.store.PurgeExpired()
	if cleaned > 0 {
		w.logger.WithOperation(logging.ChannelSystem, "cleanup").Info("Cleanup finished", "store", w.name, "cleaned", cleaned, "duration", time.Since(start))
	}
	return cleaned
}
