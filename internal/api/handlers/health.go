package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"calibboard/internal/workingset"
)

type HealthHandler struct {
	store *workingset.Store
}

func NewHealthHandler(store *workingset.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// Healthz returns 200 while the process is up, with the working set size.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"records": h.store.Len(),
	})
}
