package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calibboard/internal/api/handlers"
	"calibboard/internal/config"
	"calibboard/internal/logger"
	"calibboard/internal/pipeline"
	"calibboard/internal/storage"
	"calibboard/internal/workingset"
)

const inventoryCSV = "Sala/Sistema;TAG Hemobrás;Descrição dos Equipamentos;Local;Calibração (SIM ou NÃO);Status de qualificação\n" +
	"HSO-01;PT-101;Transmissor de pressão;Sala 1;SIM;OK\n" +
	"WW;FT-201;Medidor de vazão;Sala 2;SIM;\n" +
	"CA-3;;Manômetro;Sala 3;NÃO;\n"

func newTestServer(t *testing.T) (*echo.Echo, *workingset.Store) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{
		PreferredSheet:      "BASE_CONSOLIDADA",
		DecodeConcurrency:   2,
		PassthroughMinRunes: 3,
	}
	log := logger.Discard()
	store := workingset.New()
	loader := pipeline.NewLoadService(pipeline.NewAggregatorFromConfig(cfg, log), store, db, log)

	e := NewServer(Deps{
		Store:           store,
		Loader:          loader,
		Runs:            db,
		Log:             log,
		MaxUploadMB:     1,
		RunHistoryLimit: 10,
	})
	return e, store
}

func upload(t *testing.T, e *echo.Echo, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, _ = part.Write([]byte(content))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, http.NoBody))
	return rec
}

func TestServer_IngestThenQuery(t *testing.T) {
	e, store := newTestServer(t)

	rec := upload(t, e, map[string]string{"inventario.csv": inventoryCSV})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ing handlers.IngestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ing))
	assert.Equal(t, 3, ing.Accepted)
	assert.Equal(t, 3, store.Len())

	rec = get(e, "/api/v1/records?subsystem=Effluents")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp handlers.RecordsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "FT-201", resp.Records[0].Tag)
	assert.Equal(t, ing.TraceID, resp.TraceID)

	rec = get(e, "/api/v1/kpis")
	assert.JSONEq(t,
		`{"total":3,"missingTag":1,"required":2,"completed":1,"outstanding":1,"completionPercent":50}`,
		rec.Body.String())

	rec = get(e, "/api/v1/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ing.TraceID)
}

func TestServer_FailedIngestKeepsWorkingSet(t *testing.T) {
	e, store := newTestServer(t)

	require.Equal(t, http.StatusOK, upload(t, e, map[string]string{"inventario.csv": inventoryCSV}).Code)
	require.Equal(t, 3, store.Len())

	rec := upload(t, e, map[string]string{"scan.pdf": "%PDF-1.4"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 3, store.Len())

	rec = upload(t, e, map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 3, store.Len())

	rec = get(e, "/api/v1/runs")
	assert.Contains(t, rec.Body.String(), `"status":"failed"`)
}

func TestServer_Routes(t *testing.T) {
	e, _ := newTestServer(t)

	tests := []struct {
		target string
		want   int
	}{
		{"/healthz", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/v1/options", http.StatusOK},
		{"/api/v1/breakdown", http.StatusOK},
		{"/api/v1/export.xlsx", http.StatusOK},
		{"/api/v1/records?calibration=bogus", http.StatusBadRequest},
		{"/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, get(e, tt.target).Code)
		})
	}
}
