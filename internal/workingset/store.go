// Package workingset holds the records of the most recent successful load.
package workingset

import (
	"slices"
	"sync/atomic"
	"time"

	"calibboard/internal"
)

// Snapshot is an immutable view of the working set. Callers must not modify
// Records; use Store.Records for a private copy.
type Snapshot struct {
	Records  []internal.CanonicalRecord
	TraceID  string
	LoadedAt time.Time
}

// Store is replaced wholesale by one writer and read lock-free by many readers.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// New returns a store holding an empty snapshot.
func New() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{})
	return s
}

// Replace swaps in a new snapshot. The records slice is copied so the caller
// may keep using its own.
func (s *Store) Replace(records []internal.CanonicalRecord, traceID string) *Snapshot {
	snap := &Snapshot{
		Records:  slices.Clone(records),
		TraceID:  traceID,
		LoadedAt: time.Now().UTC(),
	}
	if snap.Records == nil {
		snap.Records = []internal.CanonicalRecord{}
	}
	s.current.Store(snap)
	return snap
}

func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

func (s *Store) Records() []internal.CanonicalRecord {
	return slices.Clone(s.Snapshot().Records)
}

func (s *Store) Len() int {
	return len(s.Snapshot().Records)
}
