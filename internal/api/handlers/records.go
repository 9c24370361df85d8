package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"calibboard/internal"
	"calibboard/internal/pipeline"
	"calibboard/internal/view"
	"calibboard/internal/workingset"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type RecordsHandler struct {
	store *workingset.Store
}

func NewRecordsHandler(store *workingset.Store) *RecordsHandler {
	return &RecordsHandler{store: store}
}

type RecordsResponse struct {
	Records  []internal.CanonicalRecord `json:"records"`
	KPIs     internal.KPISummary        `json:"kpis"`
	Criteria internal.FilterCriteria    `json:"criteria"`
	TraceID  string                     `json:"traceId,omitempty"`
	LoadedAt *time.Time                 `json:"loadedAt,omitempty"`
}

// Records returns the filtered records and the KPIs of that subset.
func (h *RecordsHandler) Records(c echo.Context) error {
	criteria, err := criteriaFromQuery(c)
	if err != nil {
		return err
	}
	snap := h.store.Snapshot()
	filtered := view.Filter(snap.Records, criteria)

	resp := RecordsResponse{
		Records:  filtered,
		KPIs:     view.Summarize(filtered),
		Criteria: criteria,
		TraceID:  snap.TraceID,
	}
	if !snap.LoadedAt.IsZero() {
		loaded := snap.LoadedAt
		resp.LoadedAt = &loaded
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *RecordsHandler) KPIs(c echo.Context) error {
	criteria, err := criteriaFromQuery(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view.Summarize(view.Filter(h.store.Snapshot().Records, criteria)))
}

// Options lists filter values from the whole working set, not the filtered view.
func (h *RecordsHandler) Options(c echo.Context) error {
	return c.JSON(http.StatusOK, view.BuildOptions(h.store.Snapshot().Records))
}

func (h *RecordsHandler) Breakdown(c echo.Context) error {
	criteria, err := criteriaFromQuery(c)
	if err != nil {
		return err
	}
	counts := view.Breakdown(view.Filter(h.store.Snapshot().Records, criteria))
	if counts == nil {
		counts = []internal.SubsystemCount{}
	}
	return c.JSON(http.StatusOK, map[string]any{"subsystems": counts})
}

// Export streams the filtered view and its KPIs as an xlsx workbook.
func (h *RecordsHandler) Export(c echo.Context) error {
	criteria, err := criteriaFromQuery(c)
	if err != nil {
		return err
	}
	filtered := view.Filter(h.store.Snapshot().Records, criteria)

	var buf bytes.Buffer
	if err := pipeline.WriteXLSX(&buf, filtered, view.Summarize(filtered)); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="calibration.xlsx"`)
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

func criteriaFromQuery(c echo.Context) (internal.FilterCriteria, error) {
	disposition, err := view.ParseDisposition(c.QueryParam("calibration"))
	if err != nil {
		return internal.FilterCriteria{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return internal.FilterCriteria{
		Subsystem:   c.QueryParam("subsystem"),
		Search:      c.QueryParam("search"),
		Location:    c.QueryParam("location"),
		Calibration: disposition,
	}, nil
}
