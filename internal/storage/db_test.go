package storage

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calibboard/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInsertAndGetRun(t *testing.T) {
	db := openTestDB(t)

	run := internal.RunRow{
		TraceID: "trace-1",
		Status:  RunPartial,
		Sources: []internal.SourceReport{
			{Name: "a.xlsx", Decoder: "xlsx", Rows: 5, Accepted: 3, Dropped: 2},
			{Name: "b.pdf", Error: "unsupported source format"},
		},
		Counts:  map[string]int{"accepted": 3, "dropped": 2},
		Timings: map[string]float64{"totalMs": 12.5},
	}
	require.NoError(t, db.InsertRun(run))

	got, err := db.GetRun("trace-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, RunPartial, got.Status)
	assert.Equal(t, run.Sources, got.Sources)
	assert.Equal(t, 3, got.Counts["accepted"])
	assert.InDelta(t, 12.5, got.Timings["totalMs"], 0.001)
	assert.NotEmpty(t, got.CreatedAt)
}

func TestGetRun_Missing(t *testing.T) {
	db := openTestDB(t)
	got, err := db.GetRun("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInsertRun_RequiresTraceID(t *testing.T) {
	db := openTestDB(t)
	assert.Error(t, db.InsertRun(internal.RunRow{Status: RunOK}))
}

func TestInsertRun_DuplicateTraceID(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.InsertRun(internal.RunRow{TraceID: "dup", Status: RunOK}))
	assert.Error(t, db.InsertRun(internal.RunRow{TraceID: "dup", Status: RunOK}))
}

func TestListRuns_NewestFirstWithLimit(t *testing.T) {
	db := openTestDB(t)
	for i := 1; i <= 4; i++ {
		require.NoError(t, db.InsertRun(internal.RunRow{TraceID: fmt.Sprintf("t%d", i), Status: RunOK}))
	}

	runs, err := db.ListRuns(3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "t4", runs[0].TraceID)
	assert.Equal(t, "t2", runs[2].TraceID)
	assert.Empty(t, runs[0].Sources)
}
