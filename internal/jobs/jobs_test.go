package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/datawarehouse"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReconciler struct {
	calls atomic.Int32
	fixed int64
	err   error
}

func (f *fakeReconciler) ReconcileCounters(ctx context.Context) (int64, error) {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("missing deadline")
	}
	return f.fixed, f.err
}

type fakeSource struct {
	rows []domain.NoteEngagement
	err  error
}

func (f *fakeSource) EngagementSnapshot(context.Context) ([]domain.NoteEngagement, error) {
	return f.rows, f.err
}

type fakePusher struct {
	takenAt time.Time
	pushed  []datawarehouse.NoteStats
	err     error
}

func (f *fakePusher) PushNoteStats(_ context.Context, takenAt time.Time, stats []datawarehouse.NoteStats) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.takenAt = takenAt
	f.pushed = stats
	return len(stats), nil
}

func TestScheduler_AddRemoveJobs(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	require.NoError(t, s.AddJob("b", "0 */30 * * * *", func() {}))
	require.NoError(t, s.AddJob("a", "@every 1h", func() {}))
	assert.Equal(t, []string{"a", "b"}, s.JobNames())

	err := s.AddJob("a", "@every 1h", func() {})
	assert.ErrorContains(t, err, "already exists")

	// five-field expressions are rejected since the seconds field is required
	err = s.AddJob("c", "*/5 * * * *", func() {})
	assert.Error(t, err)

	next, ok := s.NextRun("b")
	require.True(t, ok)
	assert.Zero(t, next.Second())
	assert.Contains(t, []int{0, 30}, next.Minute())
	_, ok = s.NextRun("missing")
	assert.False(t, ok)

	require.NoError(t, s.RemoveJob("b"))
	assert.Equal(t, []string{"a"}, s.JobNames())
	assert.ErrorContains(t, s.RemoveJob("b"), "not found")
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	ran := make(chan struct{}, 1)

	require.NoError(t, s.AddJob("tick", "* * * * * *", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	}))
	s.Start()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
	<-s.Stop().Done()
}

func TestReconcileJob(t *testing.T) {
	rec := &fakeReconciler{fixed: 3}
	NewReconcileJob(rec, zap.NewNop(), time.Second).Run()
	assert.Equal(t, int32(1), rec.calls.Load())

	// failures are logged, not propagated
	failing := &fakeReconciler{err: errors.New("db down")}
	assert.NotPanics(t, NewReconcileJob(failing, zap.NewNop(), time.Second).Run)

	s := NewScheduler(zap.NewNop())
	require.NoError(t, RegisterReconcileJob(s, rec, zap.NewNop(), "0 */30 * * * *", time.Minute))
	assert.Equal(t, []string{ReconcileJobName}, s.JobNames())
}

func TestWarehouseSyncJob_Sync(t *testing.T) {
	noteID := uuid.New()
	source := &fakeSource{rows: []domain.NoteEngagement{
		{NoteID: noteID, Title: "First", Views: 10, Likes: 2, Comments: 1},
	}}
	pusher := &fakePusher{}
	fixed := time.Date(2026, 5, 4, 23, 59, 0, 0, time.UTC)

	job := NewWarehouseSyncJob(source, pusher, zap.NewNop(), time.Second)
	job.now = func() time.Time { return fixed }

	written, err := job.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.Equal(t, fixed, pusher.takenAt)
	assert.Equal(t, []datawarehouse.NoteStats{{NoteID: noteID, Views: 10, Likes: 2, Comments: 1}}, pusher.pushed)
}

func TestWarehouseSyncJob_Errors(t *testing.T) {
	job := NewWarehouseSyncJob(&fakeSource{err: errors.New("boom")}, &fakePusher{}, zap.NewNop(), time.Second)
	_, err := job.Sync(context.Background())
	assert.EqualError(t, err, "boom")

	pusher := &fakePusher{err: datawarehouse.ErrDisabled}
	job = NewWarehouseSyncJob(&fakeSource{}, pusher, zap.NewNop(), time.Second)
	_, err = job.Sync(context.Background())
	assert.ErrorIs(t, err, datawarehouse.ErrDisabled)
}

func TestRegisterWarehouseSyncJob_SkipsDisabledClient(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	require.NoError(t, RegisterWarehouseSyncJob(s, &fakeSource{}, nil, zap.NewNop(), "0 0 2 * * *", time.Minute))
	assert.Empty(t, s.JobNames())
}
