package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"calibboard/internal"
	"calibboard/internal/pipeline"
)

// Loader is satisfied by *pipeline.LoadService.
type Loader interface {
	Load(ctx context.Context, sources []internal.Source) (pipeline.LoadResult, error)
}

type IngestHandler struct {
	loader   Loader
	maxBytes int64
}

// NewIngestHandler caps each uploaded file at maxBytes.
func NewIngestHandler(loader Loader, maxBytes int64) *IngestHandler {
	return &IngestHandler{loader: loader, maxBytes: maxBytes}
}

type IngestResponse struct {
	TraceID  string                  `json:"traceId"`
	Accepted int                     `json:"accepted"`
	Dropped  int                     `json:"dropped"`
	Sources  []internal.SourceReport `json:"sources"`
	Error    string                  `json:"error,omitempty"`
}

// Ingest replaces the working set with the records of the multipart "files"
// field. A total failure answers 422 and leaves the previous set in place.
func (h *IngestHandler) Ingest(c echo.Context) error {
	sources, err := h.readSources(c)
	if err != nil {
		return err
	}

	res, err := h.loader.Load(c.Request().Context(), sources)
	resp := IngestResponse{
		TraceID:  res.TraceID,
		Accepted: res.Accepted,
		Dropped:  res.Dropped,
		Sources:  res.Sources,
	}
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, resp)
	case errors.Is(err, context.Canceled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "ingestion cancelled")
	case pipeline.IsTotalFailure(err):
		resp.Error = "ingestion failed: no records could be loaded"
		return c.JSON(http.StatusUnprocessableEntity, resp)
	default:
		return err
	}
}

func (h *IngestHandler) readSources(c echo.Context) ([]internal.Source, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "expected multipart form with files")
	}

	files := form.File["files"]
	sources := make([]internal.Source, 0, len(files))
	for _, fh := range files {
		if h.maxBytes > 0 && fh.Size > h.maxBytes {
			return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("%s exceeds the upload limit", fh.Filename))
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		blob, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		sources = append(sources, internal.Source{Name: fh.Filename, Content: blob})
	}
	return sources, nil
}
