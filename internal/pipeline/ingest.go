package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"calibboard/internal"
	"calibboard/internal/config"
	"calibboard/internal/metrics"
)

var (
	ErrNoSources        = errors.New("no sources submitted")
	ErrAllSourcesFailed = errors.New("every source failed to decode")
)

// Aggregator decodes sources concurrently and normalizes their rows. A source
// that fails, panics or times out contributes nothing; the others still count.
type Aggregator struct {
	registry    *Registry
	normalizer  *Normalizer
	concurrency int
	timeout     time.Duration
	log         *slog.Logger
}

func NewAggregator(registry *Registry, normalizer *Normalizer, concurrency int, timeout time.Duration, log *slog.Logger) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{
		registry:    registry,
		normalizer:  normalizer,
		concurrency: concurrency,
		timeout:     timeout,
		log:         log,
	}
}

// NewAggregatorFromConfig wires the default decoders, alias overrides and
// extra classifier rules from cfg.
func NewAggregatorFromConfig(cfg config.Config, log *slog.Logger) *Aggregator {
	classifier := NewClassifier(
		WithExtraRules(RulesFromSpecs(cfg.Mapping.Rules)...),
		WithPassthroughMinRunes(cfg.PassthroughMinRunes),
	)
	normalizer := NewNormalizer(DefaultAliases().WithOverrides(cfg.Mapping.Aliases), classifier)
	return NewAggregator(DefaultRegistry(cfg.PreferredSheet), normalizer, cfg.DecodeConcurrency, cfg.DecodeTimeout, log)
}

func (a *Aggregator) Registry() *Registry { return a.registry }

type IngestResult struct {
	Records []internal.CanonicalRecord
	Sources []internal.SourceReport
}

func (r IngestResult) Accepted() int { return len(r.Records) }

func (r IngestResult) Dropped() int {
	n := 0
	for _, s := range r.Sources {
		n += s.Dropped
	}
	return n
}

func (r IngestResult) FailedSources() int {
	n := 0
	for _, s := range r.Sources {
		if s.Failed() {
			n++
		}
	}
	return n
}

type sourceOutcome struct {
	report  internal.SourceReport
	records []internal.CanonicalRecord
	err     error
}

// Ingest returns records in submission order, rows in source order. The result
// is populated even when the error is ErrAllSourcesFailed so callers can
// report per-source failures.
func (a *Aggregator) Ingest(ctx context.Context, sources []internal.Source) (IngestResult, error) {
	if len(sources) == 0 {
		return IngestResult{}, ErrNoSources
	}

	outcomes := make([]sourceOutcome, len(sources))
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			outcomes[i] = a.ingestSource(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	var (
		result IngestResult
		errs   []error
	)
	result.Sources = make([]internal.SourceReport, 0, len(outcomes))
	for _, o := range outcomes {
		result.Sources = append(result.Sources, o.report)
		result.Records = append(result.Records, o.records...)
		if o.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.report.Name, o.err))
		}
	}

	if len(errs) == len(sources) {
		return result, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(errs...))
	}
	return result, nil
}

func (a *Aggregator) ingestSource(ctx context.Context, src internal.Source) sourceOutcome {
	report := internal.SourceReport{Name: src.Name}

	dec, err := a.registry.Select(src)
	if err != nil {
		return a.failed(report, "unknown", err)
	}
	report.Decoder = dec.Name()

	rows, err := a.decode(ctx, dec, src)
	if err != nil {
		return a.failed(report, dec.Name(), err)
	}

	records, dropped := a.normalizer.NormalizeRows(rows)
	report.Rows = len(rows)
	report.Accepted = len(records)
	report.Dropped = dropped

	metrics.SourcesTotal.WithLabelValues(dec.Name(), "ok").Inc()
	metrics.RecordsAcceptedTotal.Add(float64(report.Accepted))
	metrics.RecordsDroppedTotal.Add(float64(report.Dropped))
	a.log.Debug("source decoded",
		"source", src.Name,
		"decoder", dec.Name(),
		"rows", report.Rows,
		"accepted", report.Accepted,
		"dropped", report.Dropped,
	)
	return sourceOutcome{report: report, records: records}
}

func (a *Aggregator) failed(report internal.SourceReport, decoder string, err error) sourceOutcome {
	report.Error = err.Error()
	metrics.SourcesTotal.WithLabelValues(decoder, "failed").Inc()
	a.log.Warn("source skipped", "source", report.Name, "decoder", decoder, "error", err)
	return sourceOutcome{report: report, err: err}
}

type decodeResult struct {
	rows []internal.RawRow
	err  error
}

// decode runs the decoder in its own goroutine so a decoder that ignores ctx
// still cannot hold the join past the timeout.
func (a *Aggregator) decode(ctx context.Context, dec Decoder, src internal.Source) ([]internal.RawRow, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	done := make(chan decodeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- decodeResult{err: fmt.Errorf("decoder panic: %v", r)}
			}
		}()
		rows, err := dec.Decode(ctx, src)
		done <- decodeResult{rows: rows, err: err}
	}()

	select {
	case res := <-done:
		return res.rows, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("decode aborted: %w", ctx.Err())
	}
}
