package app

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Syncer performs one sync with the remote source.
type Syncer interface {
	Sync(ctx context.Context) (SyncResult, error)
}

// SyncWorker runs Sync on an interval until stopped. A failed sync is logged
// and the worker waits for the next tick; it does not retry early.
type SyncWorker struct {
	syncer    Syncer
	interval  time.Duration
	immediate bool
	logger    *slog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
}

// SyncWorkerConfig configures a SyncWorker.
type SyncWorkerConfig struct {
	Interval time.Duration

	// Immediate runs one sync as soon as Run starts.
	Immediate bool

	Logger *slog.Logger
}

// NewSyncWorker creates a worker for syncer.
func NewSyncWorker(syncer Syncer, cfg SyncWorkerConfig) *SyncWorker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncWorker{
		syncer:    syncer,
		interval:  cfg.Interval,
		immediate: cfg.Immediate,
		logger:    logger.With(slog.String("component", "app.SyncWorker")),
		stopChan:  make(chan struct{}),
	}
}

// Run blocks, syncing every interval, until ctx is cancelled or Stop is
// called. It returns nil in both cases.
func (w *SyncWorker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	stop := w.stopChan
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "starting sync worker", slog.Duration("interval", w.interval))

	if w.immediate {
		w.syncOnce(ctx)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "sync worker stopped", slog.String("reason", "context done"))
			return nil
		case <-stop:
			w.logger.InfoContext(ctx, "sync worker stopped", slog.String("reason", "stop requested"))
			return nil
		case <-ticker.C:
			w.syncOnce(ctx)
		}
	}
}

// Stop ends Run. Calling Stop more than once is safe.
func (w *SyncWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.stopChan:
	default:
		close(w.stopChan)
	}
}

func (w *SyncWorker) syncOnce(ctx context.Context) {
	if _, err := w.syncer.Sync(ctx); err != nil {
		w.logger.WarnContext(ctx, "background sync failed", slog.Any("error", err))
	}
}
