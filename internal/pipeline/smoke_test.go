package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calibboard/internal/config"
	"calibboard/internal/logger"
	"calibboard/internal/storage"
	"calibboard/internal/view"
	"calibboard/internal/workingset"
)

// Files on disk through the configured pipeline into the store and out to xlsx.
func TestSmokeDirectoryToXLSX(t *testing.T) {
	tmp := t.TempDir()
	inbox := filepath.Join(tmp, "inbox")
	require.NoError(t, os.MkdirAll(inbox, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(inbox, "a_base.xlsx"), mkWorkbook(t,
		sheetData{name: "Capa", rows: [][]any{{"ignored"}}},
		sheetData{name: "BASE_CONSOLIDADA", rows: [][]any{
			{"Sala/Sistema", "TAG Hemobrás", "Descrição dos Equipamentos", "Calibração (SIM ou NÃO)", "Status de qualificação"},
			{"Ácido sulfúrico HSO", "PT-1", "Transmissor", "SIM", "OK"},
			{"Vapor", "", "Purgador", "NÃO", ""},
		}},
	), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "b_extra.csv"), []byte("Sistema;TAG;Descrição\nVP;XV-1;Válvula\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "readme.md"), []byte("skip me"), 0o644))

	db, err := storage.Open(filepath.Join(tmp, "runs.db"))
	require.NoError(t, err)
	defer db.Close()

	mapping := config.Mapping{Rules: []config.RuleSpec{{Subsystem: "Steam", Contains: []string{"vapor"}}}}
	cfg := config.Config{PreferredSheet: "BASE_CONSOLIDADA", DecodeConcurrency: 2, PassthroughMinRunes: 3, Mapping: mapping}
	svc := NewLoadService(NewAggregatorFromConfig(cfg, logger.Discard()), workingset.New(), db, logger.Discard())

	paths, err := SupportedFiles(inbox, svc.Registry())
	require.NoError(t, err)
	require.Len(t, paths, 2)
	sources, err := SourcesFromPaths(paths)
	require.NoError(t, err)

	res, err := svc.Load(context.Background(), sources)
	require.NoError(t, err)
	require.Equal(t, 3, res.Accepted)

	records := svc.Store().Records()
	assert.Equal(t, SubsystemSulfuricAcid, records[0].Subsystem)
	assert.Equal(t, "Steam", records[1].Subsystem)
	assert.Equal(t, SubsystemGeneral, records[2].Subsystem)

	out := filepath.Join(tmp, "out", "view.xlsx")
	require.NoError(t, ExportRecordsToXLSX(records, view.Summarize(records), out))
	_, err = os.Stat(out)
	require.NoError(t, err)
}
