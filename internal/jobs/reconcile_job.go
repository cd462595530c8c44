package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ReconcileJobName is the scheduler name of the counter reconciliation job
const ReconcileJobName = "reconcile-counters"

// CounterReconciler recomputes denormalized like and comment counters from their source tables.
type CounterReconciler interface {
	ReconcileCounters(ctx context.Context) (int64, error)
}

// ReconcileJob repairs counters that drifted, e.g. after a crash between a like insert and the counter bump.
type ReconcileJob struct {
	reconciler CounterReconciler
	logger     *zap.Logger
	timeout    time.Duration
}

func NewReconcileJob(reconciler CounterReconciler, logger *zap.Logger, timeout time.Duration) *ReconcileJob {
	return &ReconcileJob{
		reconciler: reconciler,
		logger:     logger,
		timeout:    timeout,
	}
}

// Run executes one reconciliation pass. Called by the scheduler.
func (j *ReconcileJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	fixed, err := j.reconciler.ReconcileCounters(ctx)
	if err != nil {
		j.logger.Error("counter reconciliation failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("counter reconciliation completed",
		zap.Int64("notes_fixed", fixed),
		zap.Duration("duration", time.Since(start)))
}

// RegisterReconcileJob adds the reconciliation job to the scheduler under cronExpr.
func RegisterReconcileJob(scheduler *Scheduler, reconciler CounterReconciler, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	job := NewReconcileJob(reconciler, logger, timeout)
	return scheduler.AddJob(ReconcileJobName, cronExpr, job.Run)
}
