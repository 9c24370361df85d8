package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calibboard/internal"
	"calibboard/internal/logger"
	"calibboard/internal/storage"
	"calibboard/internal/workingset"
)

func newTestLoadService(t *testing.T) (*LoadService, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewLoadService(newTestAggregator(time.Second), workingset.New(), db, logger.Discard()), db
}

func TestLoad_ReplacesWorkingSet(t *testing.T) {
	svc, db := newTestLoadService(t)
	ctx := context.Background()

	res, err := svc.Load(ctx, []internal.Source{{Name: "a.csv", Content: []byte("TAG\nA1\nA2\n")}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Accepted)
	assert.NotEmpty(t, res.TraceID)
	assert.Equal(t, res.TraceID, svc.Store().Snapshot().TraceID)

	res, err = svc.Load(ctx, []internal.Source{{Name: "b.csv", Content: []byte("TAG\nB1\n")}})
	require.NoError(t, err)
	require.Equal(t, 1, svc.Store().Len())
	assert.Equal(t, "B1", svc.Store().Records()[0].Tag)

	run, err := db.GetRun(res.TraceID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, storage.RunOK, run.Status)
	assert.Equal(t, 1, run.Counts["accepted"])
}

func TestLoad_TotalFailureKeepsPreviousSet(t *testing.T) {
	svc, db := newTestLoadService(t)
	ctx := context.Background()

	_, err := svc.Load(ctx, []internal.Source{{Name: "a.csv", Content: []byte("TAG\nA1\nA2\n")}})
	require.NoError(t, err)
	before := svc.Store().Snapshot()

	res, err := svc.Load(ctx, []internal.Source{{Name: "scan.pdf"}})
	require.ErrorIs(t, err, ErrAllSourcesFailed)
	assert.True(t, IsTotalFailure(err))
	assert.Equal(t, 0, res.Accepted)
	assert.Same(t, before, svc.Store().Snapshot())

	_, err = svc.Load(ctx, nil)
	require.ErrorIs(t, err, ErrNoSources)
	assert.Equal(t, 2, svc.Store().Len())

	run, err := db.GetRun(res.TraceID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, storage.RunFailed, run.Status)
	assert.Contains(t, run.Error, "scan.pdf")
	require.Len(t, run.Sources, 1)
	assert.True(t, run.Sources[0].Failed())
}

func TestLoad_FirstLoadFailureLeavesEmptySet(t *testing.T) {
	svc, _ := newTestLoadService(t)

	_, err := svc.Load(context.Background(), []internal.Source{{Name: "scan.pdf"}})
	require.Error(t, err)
	assert.Equal(t, 0, svc.Store().Len())
}

func TestLoad_PartialIsRecorded(t *testing.T) {
	svc, db := newTestLoadService(t)

	res, err := svc.Load(context.Background(), []internal.Source{
		{Name: "a.csv", Content: []byte("TAG\nA1\n")},
		{Name: "scan.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Accepted)

	runs, err := db.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, storage.RunPartial, runs[0].Status)
	assert.Equal(t, 1, runs[0].Counts["failed"])
}

func TestLoad_WithoutHistory(t *testing.T) {
	svc := NewLoadService(newTestAggregator(time.Second), workingset.New(), nil, nil)
	res, err := svc.Load(context.Background(), []internal.Source{{Name: "a.csv", Content: []byte("TAG\nA1\n")}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Accepted)
}
