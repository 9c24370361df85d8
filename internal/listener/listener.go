// Package listener reloads the working set whenever the drop directory changes.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"calibboard/internal"
	"calibboard/internal/pipeline"
)

// Loader is satisfied by *pipeline.LoadService.
type Loader interface {
	Load(ctx context.Context, sources []internal.Source) (pipeline.LoadResult, error)
}

type Service struct {
	dir      string
	interval time.Duration
	registry *pipeline.Registry
	loader   Loader
	log      *slog.Logger

	lastFingerprint string
}

func NewService(dir string, interval time.Duration, registry *pipeline.Registry, loader Loader, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{dir: dir, interval: interval, registry: registry, loader: loader, log: log}
}

// Run polls until ctx is cancelled. Cycle errors are logged and retried on
// the next tick.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("watching drop directory", "dir", s.dir, "interval", s.interval)
	for {
		if _, err := s.RunCycle(ctx); err != nil {
			s.log.Warn("listener cycle error", "dir", s.dir, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.interval):
		}
	}
}

// RunCycle loads every supported file when the directory listing differs from
// the last successful load. It reports whether a load happened.
func (s *Service) RunCycle(ctx context.Context) (bool, error) {
	paths, err := pipeline.SupportedFiles(s.dir, s.registry)
	if err != nil {
		return false, err
	}
	fp, err := fingerprint(paths)
	if err != nil {
		return false, err
	}
	if fp == s.lastFingerprint {
		return false, nil
	}
	if len(paths) == 0 {
		s.lastFingerprint = fp
		return false, nil
	}

	sources, err := pipeline.SourcesFromPaths(paths)
	if err != nil {
		return false, err
	}
	res, err := s.loader.Load(ctx, sources)
	if err != nil {
		return false, err
	}
	s.lastFingerprint = fp
	s.log.Info("listener cycle done", "dir", s.dir, "files", len(paths), "accepted", res.Accepted, "trace_id", res.TraceID)
	return true, nil
}

func fingerprint(paths []string) (string, error) {
	var b strings.Builder
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%s|%d|%d\n", p, info.Size(), info.ModTime().UnixNano())
	}
	return b.String(), nil
}
