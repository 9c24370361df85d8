package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"calibboard/internal"
)

// RunLister is satisfied by *storage.DB.
type RunLister interface {
	ListRuns(limit int) ([]internal.RunRow, error)
}

type RunsHandler struct {
	runs  RunLister
	limit int
}

func NewRunsHandler(runs RunLister, limit int) *RunsHandler {
	return &RunsHandler{runs: runs, limit: limit}
}

type RunResponse struct {
	TraceID   string                  `json:"traceId"`
	Status    string                  `json:"status"`
	Sources   []internal.SourceReport `json:"sources"`
	Counts    map[string]int          `json:"counts"`
	Timings   map[string]float64      `json:"timings"`
	Error     string                  `json:"error,omitempty"`
	CreatedAt string                  `json:"createdAt"`
}

// List returns recent load attempts, newest first. ?limit= may lower the
// configured cap but never raise it.
func (h *RunsHandler) List(c echo.Context) error {
	limit := h.limit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		if n < limit {
			limit = n
		}
	}

	out := []RunResponse{}
	if h.runs != nil {
		runs, err := h.runs.ListRuns(limit)
		if err != nil {
			return err
		}
		for _, r := range runs {
			out = append(out, RunResponse{
				TraceID:   r.TraceID,
				Status:    r.Status,
				Sources:   r.Sources,
				Counts:    r.Counts,
				Timings:   r.Timings,
				Error:     r.Error,
				CreatedAt: r.CreatedAt,
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"runs": out})
}
