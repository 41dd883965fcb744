package workers

import (
	"context"
	"time"

	"github.com/runwiththewinners/bounties/logger"
	"github.com/runwiththewinners/bounties/services"
	"go.uber.org/zap"
)

// Reconciler is the part of LeaderboardService the worker needs.
type Reconciler interface {
	Reconcile(ctx context.Context, apply bool) (*services.ReconcileReport, error)
}

// ReconcileWorker periodically checks stats and leaderboard against approved
// submissions. It only reports; corrections go through the admin endpoint.
type ReconcileWorker struct {
	Reconciler Reconciler
	Interval   time.Duration
	Log        *zap.Logger

	// LastReport is written only by the polling goroutine.
	LastReport *services.ReconcileReport
}

func NewReconcileWorker(r Reconciler, interval time.Duration, log *zap.Logger) *ReconcileWorker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &ReconcileWorker{Reconciler: r, Interval: interval, Log: logger.OrNop(log)}
}

// Run blocks until ctx is cancelled.
func (w *ReconcileWorker) Run(ctx context.Context) {
	w.Log.Info("starting reconcile polling", zap.Duration("interval", w.Interval))

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Log.Info("reconcile polling stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs one report-only pass and returns the report, or nil on error.
func (w *ReconcileWorker) RunOnce(ctx context.Context) *services.ReconcileReport {
	report, err := w.Reconciler.Reconcile(ctx, false)
	if err != nil {
		w.Log.Error("reconcile check failed", zap.Error(err))
		return nil
	}
	w.LastReport = report
	if report.InSync() {
		w.Log.Debug("aggregates in sync",
			zap.String("total_paid", report.RecordedTotal.String()),
			zap.Int("completed_count", report.RecordedCount))
	}
	return report
}
