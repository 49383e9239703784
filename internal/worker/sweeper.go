package worker

import (
	"context"
	"log/slog"
	"time"
)

// sweepLoop expires stale pending bookings and starts due sessions on every
// tick. Errors are logged and the next tick tries again.
func (w *Worker) sweepLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	w.logger.Info("Sweeper started",
		slog.Duration("interval", w.sweepInterval),
	)

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	expired, err := w.sweeper.ExpirePending(ctx)
	if err != nil {
		w.logger.Error("Failed to expire pending bookings",
			slog.Any("error", err),
		)
	}
	started, err := w.sweeper.StartDue(ctx)
	if err != nil {
		w.logger.Error("Failed to start due bookings",
			slog.Any("error", err),
		)
	}
	if expired > 0 || started > 0 {
		w.logger.Info("Sweep completed",
			slog.Int("expired", expired),
			slog.Int("started", started),
		)
	}
}
