package jobs

import (
	"context"
	"time"

	"github.com/inkwell-notes/notes-api/internal/datawarehouse"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"go.uber.org/zap"
)

// WarehouseSyncJobName is the scheduler name of the reporting warehouse export
const WarehouseSyncJobName = "warehouse-sync"

// EngagementSource provides per-note counters of published notes.
type EngagementSource interface {
	EngagementSnapshot(ctx context.Context) ([]domain.NoteEngagement, error)
}

// StatsPusher writes a day's engagement snapshot to the warehouse.
type StatsPusher interface {
	PushNoteStats(ctx context.Context, takenAt time.Time, stats []datawarehouse.NoteStats) (int, error)
}

// WarehouseSyncJob exports the engagement snapshot to the reporting warehouse.
// Running it several times a day overwrites that day's row per note.
type WarehouseSyncJob struct {
	source  EngagementSource
	pusher  StatsPusher
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewWarehouseSyncJob(source EngagementSource, pusher StatsPusher, logger *zap.Logger, timeout time.Duration) *WarehouseSyncJob {
	return &WarehouseSyncJob{
		source:  source,
		pusher:  pusher,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
	}
}

// Run executes one export. Called by the scheduler.
func (j *WarehouseSyncJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.Sync(ctx); err != nil {
		j.logger.Error("warehouse sync failed", zap.Error(err))
	}
}

// Sync loads the snapshot and pushes it, returning the number of rows written.
func (j *WarehouseSyncJob) Sync(ctx context.Context) (int, error) {
	start := j.now()

	rows, err := j.source.EngagementSnapshot(ctx)
	if err != nil {
		return 0, err
	}

	stats := make([]datawarehouse.NoteStats, len(rows))
	for i, row := range rows {
		stats[i] = datawarehouse.NoteStats{
			NoteID:   row.NoteID,
			Views:    row.Views,
			Likes:    row.Likes,
			Comments: row.Comments,
		}
	}

	written, err := j.pusher.PushNoteStats(ctx, start, stats)
	if err != nil {
		return 0, err
	}

	j.logger.Info("warehouse sync completed",
		zap.Int("notes", written),
		zap.Duration("duration", time.Since(start)))
	return written, nil
}

// RegisterWarehouseSyncJob adds the export to the scheduler. It is skipped when the client is disabled.
func RegisterWarehouseSyncJob(scheduler *Scheduler, source EngagementSource, client *datawarehouse.Client, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	if !client.IsEnabled() {
		logger.Info("data warehouse disabled, warehouse sync job not scheduled")
		return nil
	}
	job := NewWarehouseSyncJob(source, client, logger, timeout)
	return scheduler.AddJob(WarehouseSyncJobName, cronExpr, job.Run)
}
