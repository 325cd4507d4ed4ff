package trust

import (
	"context"
	"log/slog"
	"time"
)

// DecayWorker periodically applies trust decay to inactive members.
// The decay formula itself is pure (Engine.Decay); this worker is the
// external scheduler driving it.
type DecayWorker struct {
	engine   *Engine
	store    Store
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
}

// NewDecayWorker creates a decay worker. interval is typically hours in
// production, seconds in demos.
func NewDecayWorker(engine *Engine, store Store, interval time.Duration, logger *slog.Logger) *DecayWorker {
	return &DecayWorker{
		engine:   engine,
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *DecayWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop signals the worker to stop.
func (w *DecayWorker) Stop() {
	select {
	case w.stop <- struct{}{}:
	default:
	}
}

func (w *DecayWorker) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-7 * 24 * time.Hour)
	records, err := w.store.ListInactive(ctx, cutoff)
	if err != nil {
		w.logger.Warn("trust decay sweep failed to list records", "error", err)
		return
	}

	decayed := 0
	for _, r := range records {
		days := int(time.Since(r.UpdatedAt).Hours() / 24)
		_, applied, err := w.engine.ApplyDecay(ctx, r.GroupID, r.UserID, r.Score, days)
		if err != nil {
			w.logger.Warn("trust decay write failed",
				"group_id", r.GroupID, "user_id", r.UserID, "error", err)
			continue
		}
		if applied {
			decayed++
		}
	}

	if decayed > 0 {
		w.logger.Info("trust decay sweep completed", "inactive", len(records), "decayed", decayed)
	}
}
