package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calibboard/internal"
)

func TestSummarize_Scenario(t *testing.T) {
	records := []internal.CanonicalRecord{
		{Tag: "T1", CalibrationRequired: "SIM", CalibrationStatus: "OK"},
		{Tag: "", CalibrationRequired: "SIM", CalibrationStatus: ""},
		{Tag: "T3", CalibrationRequired: "NAO", CalibrationStatus: ""},
	}

	got := Summarize(records)
	assert.Equal(t, internal.KPISummary{
		Total:             3,
		MissingTag:        1,
		Required:          2,
		Completed:         1,
		Outstanding:       1,
		CompletionPercent: 50,
	}, got)
}

func TestSummarize_Edges(t *testing.T) {
	tests := []struct {
		name    string
		records []internal.CanonicalRecord
		percent int
	}{
		{"empty", nil, 0},
		{"nothing required", []internal.CanonicalRecord{{Tag: "A", CalibrationStatus: "OK"}}, 0},
		{"rounds half up", []internal.CanonicalRecord{
			{Tag: "A", CalibrationRequired: "SIM", CalibrationStatus: "OK"},
			{Tag: "B", CalibrationRequired: "SIM"},
			{Tag: "C", CalibrationRequired: "SIM"},
			{Tag: "D", CalibrationRequired: "SIM"},
			{Tag: "E", CalibrationRequired: "SIM"},
			{Tag: "F", CalibrationRequired: "SIM"},
			{Tag: "G", CalibrationRequired: "SIM"},
			{Tag: "H", CalibrationRequired: "SIM"},
		}, 13},
		{"two thirds", []internal.CanonicalRecord{
			{Tag: "A", CalibrationRequired: "sim", CalibrationStatus: "ok"},
			{Tag: "B", CalibrationRequired: "SIM", CalibrationStatus: "OK"},
			{Tag: "C", CalibrationRequired: "SIM"},
		}, 67},
		{"completed without requirement is ignored", []internal.CanonicalRecord{
			{Tag: "A", CalibrationRequired: "NAO", CalibrationStatus: "OK"},
			{Tag: "B", CalibrationRequired: "SIM"},
		}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.records)
			assert.Equal(t, tt.percent, got.CompletionPercent)
			assert.Equal(t, got.Required-got.Completed, got.Outstanding)
		})
	}
}

func TestSummarize_TracksFilteredSubset(t *testing.T) {
	records := tenRecords()
	all := Summarize(records)
	assert.Equal(t, 10, all.Total)
	assert.Equal(t, 4, all.Required)
	assert.Equal(t, 3, all.Completed)
	assert.Equal(t, 75, all.CompletionPercent)

	pending := Summarize(Filter(records, internal.FilterCriteria{Calibration: internal.DispositionPending}))
	assert.Equal(t, 1, pending.Total)
	assert.Equal(t, 0, pending.CompletionPercent)
}

func TestBreakdown(t *testing.T) {
	got := Breakdown(tenRecords())
	require.Len(t, got, 3)
	assert.Equal(t, internal.SubsystemCount{Subsystem: "Compressed Air", Count: 6}, got[0])
	assert.Equal(t, internal.SubsystemCount{Subsystem: "Effluents", Count: 2, Required: 2, Completed: 1}, got[1])
	assert.Equal(t, internal.SubsystemCount{Subsystem: "Sulfuric Acid", Count: 2, Required: 2, Completed: 2}, got[2])

	assert.Empty(t, Breakdown(nil))
}
