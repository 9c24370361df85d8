package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"calibboard/internal"
	"calibboard/internal/metrics"
	"calibboard/internal/storage"
	"calibboard/internal/workingset"
)

// LoadService is the single writer of the working set. Loads are serialized;
// a load that fails entirely leaves the previous set in place.
type LoadService struct {
	mu         sync.Mutex
	aggregator *Aggregator
	store      *workingset.Store
	db         *storage.DB
	log        *slog.Logger
}

// NewLoadService records run history in db when it is non-nil.
func NewLoadService(aggregator *Aggregator, store *workingset.Store, db *storage.DB, log *slog.Logger) *LoadService {
	if log == nil {
		log = slog.Default()
	}
	return &LoadService{aggregator: aggregator, store: store, db: db, log: log}
}

type LoadResult struct {
	TraceID  string                  `json:"traceId"`
	Accepted int                     `json:"accepted"`
	Dropped  int                     `json:"dropped"`
	Sources  []internal.SourceReport `json:"sources"`
	Duration time.Duration           `json:"-"`
}

func (s *LoadService) Store() *workingset.Store { return s.store }

func (s *LoadService) Registry() *Registry { return s.aggregator.Registry() }

func (s *LoadService) Load(ctx context.Context, sources []internal.Source) (LoadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result := LoadResult{TraceID: uuid.NewString()}
	log := s.log.With("trace_id", result.TraceID, "sources", len(sources))

	ingested, err := s.aggregator.Ingest(ctx, sources)
	result.Sources = ingested.Sources
	result.Dropped = ingested.Dropped()
	result.Duration = time.Since(start)

	if err != nil {
		metrics.IngestionsTotal.WithLabelValues(storage.RunFailed).Inc()
		metrics.IngestionDuration.Observe(result.Duration.Seconds())
		s.recordRun(result, storage.RunFailed, ingested, err)
		log.Error("load failed, working set kept", "error", err, "kept", s.store.Len())
		return result, err
	}

	s.store.Replace(ingested.Records, result.TraceID)
	result.Accepted = ingested.Accepted()
	result.Duration = time.Since(start)

	status := storage.RunOK
	if ingested.FailedSources() > 0 {
		status = storage.RunPartial
	}
	metrics.IngestionsTotal.WithLabelValues(status).Inc()
	metrics.IngestionDuration.Observe(result.Duration.Seconds())
	metrics.WorkingSetRecords.Set(float64(result.Accepted))
	s.recordRun(result, status, ingested, nil)

	log.Info("working set replaced",
		"status", status,
		"accepted", result.Accepted,
		"dropped", result.Dropped,
		"failed_sources", ingested.FailedSources(),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func (s *LoadService) recordRun(result LoadResult, status string, ingested IngestResult, loadErr error) {
	if s.db == nil {
		return
	}
	run := internal.RunRow{
		TraceID: result.TraceID,
		Status:  status,
		Sources: result.Sources,
		Counts: map[string]int{
			"sources":  len(result.Sources),
			"failed":   ingested.FailedSources(),
			"accepted": ingested.Accepted(),
			"dropped":  result.Dropped,
		},
		Timings: map[string]float64{"totalMs": float64(result.Duration.Milliseconds())},
	}
	if loadErr != nil {
		run.Error = loadErr.Error()
		run.Counts["accepted"] = 0
	}
	if err := s.db.InsertRun(run); err != nil {
		s.log.Warn("run history not recorded", "trace_id", result.TraceID, "error", err)
	}
}

// IsTotalFailure reports whether err means nothing could be loaded.
func IsTotalFailure(err error) bool {
	return errors.Is(err, ErrNoSources) || errors.Is(err, ErrAllSourcesFailed)
}
