// Package api wires the echo server: middleware, handlers and routes.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"calibboard/internal/api/handlers"
	mw "calibboard/internal/api/middleware"
	"calibboard/internal/storage"
	"calibboard/internal/workingset"
)

type Deps struct {
	Store           *workingset.Store
	Loader          handlers.Loader
	Runs            *storage.DB
	Log             *slog.Logger
	MaxUploadMB     int
	RunHistoryLimit int
}

func NewServer(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(mw.RequestLog(d.Log))
	e.Use(mw.Recovery(d.Log))
	e.Use(mw.Metrics())

	maxBytes := int64(d.MaxUploadMB) << 20
	// Room for several files plus multipart framing.
	bodyLimit := echomw.BodyLimit(fmt.Sprintf("%dM", d.MaxUploadMB*8))

	health := handlers.NewHealthHandler(d.Store)
	records := handlers.NewRecordsHandler(d.Store)
	ingest := handlers.NewIngestHandler(d.Loader, maxBytes)

	var runLister handlers.RunLister
	if d.Runs != nil {
		runLister = d.Runs
	}
	runs := handlers.NewRunsHandler(runLister, d.RunHistoryLimit)

	e.GET("/healthz", health.Healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1")
	v1.POST("/ingest", ingest.Ingest, bodyLimit)
	v1.GET("/records", records.Records)
	v1.GET("/kpis", records.KPIs)
	v1.GET("/options", records.Options)
	v1.GET("/breakdown", records.Breakdown)
	v1.GET("/export.xlsx", records.Export)
	v1.GET("/runs", runs.List)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	})
	return e
}
