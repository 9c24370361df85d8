package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"calibboard/internal"
)

func TestExportRecordsToXLSX(t *testing.T) {
	t.Parallel()

	records := []internal.CanonicalRecord{
		{Subsystem: SubsystemEffluents, Tag: "FT-1", Description: "Flow", Location: "Sala 2", CalibrationRequired: "SIM", CalibrationStatus: "OK", Origin: "A"},
		{Subsystem: SubsystemGeneral, Description: "Manômetro"},
	}
	summary := internal.KPISummary{Total: 2, MissingTag: 1, Required: 1, Completed: 1, CompletionPercent: 100}

	out := filepath.Join(t.TempDir(), "nested", "view.xlsx")
	require.NoError(t, ExportRecordsToXLSX(records, summary, out))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{RecordsSheet, KPISheet}, f.GetSheetList())

	rows, err := f.GetRows(RecordsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, recordHeaders, rows[0])
	assert.Equal(t, []string{"Effluents", "FT-1", "Flow", "Sala 2", "SIM", "OK", "A"}, rows[1])
	assert.Equal(t, []string{"General / Other", "", "Manômetro"}, rows[2])

	kpis, err := f.GetRows(KPISheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"missing_tag", "1"}, kpis[1])
	assert.Equal(t, []string{"completion_percent", "100"}, kpis[5])
}
