package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/worldcal/internal/ir"
)

// MapSource is an in-memory Source, used for built-in templates and tests.
//
// Thread-safety: All methods are safe for concurrent use.
type MapSource struct {
	mu   sync.RWMutex
	cals map[string]ir.Calendar
}

// NewMapSource creates a source holding the given calendars.
func NewMapSource(cals ...ir.Calendar) *MapSource {
	s := &MapSource{cals: make(map[string]ir.Calendar, len(cals))}
	for _, cal := range cals {
		s.cals[cal.ID] = cal
	}
	return s
}

// Put adds or replaces a calendar.
func (s *MapSource) Put(cal ir.Calendar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cals[cal.ID] = cal
}

// Snapshot implements Source.
func (s *MapSource) Snapshot(_ context.Context, id string) (ir.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cal, ok := s.cals[id]
	if !ok {
		return ir.Calendar{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cal, nil
}

// Version implements Versioner.
func (s *MapSource) Version(_ context.Context, id string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cal, ok := s.cals[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cal.Version, nil
}

// IDs returns the calendar ids in sorted order.
func (s *MapSource) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.cals))
	for id := range s.cals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Chain tries each source in order and returns the first snapshot found.
// Errors other than ErrNotFound stop the search.
type Chain []Source

// Snapshot implements Source.
func (c Chain) Snapshot(ctx context.Context, id string) (ir.Calendar, error) {
	for _, src := range c {
		cal, err := src.Snapshot(ctx, id)
		if err == nil {
			return cal, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return ir.Calendar{}, err
		}
	}
	return ir.Calendar{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Version implements Versioner. A member that is not a Versioner ends the
// search with version 0, so the caller falls back to Snapshot.
func (c Chain) Version(ctx context.Context, id string) (int64, error) {
	for _, src := range c {
		vs, ok := src.(Versioner)
		if !ok {
			return 0, nil
		}
		v, err := vs.Version(ctx, id)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return 0, err
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
}
