// Package cache holds compiled calendars keyed by calendar id and
// last-modified marker.
//
// A miss compiles the snapshot exactly once no matter how many goroutines
// ask for it concurrently (singleflight per key). Reads take a shared lock;
// only storing a fresh compilation takes the exclusive lock. Compiled
// values are immutable and handed out without copying.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/worldcal/internal/compiler"
	"github.com/roach88/worldcal/internal/ir"
)

// ErrNotFound is returned by a Source that has no calendar with the
// requested id.
var ErrNotFound = ir.ErrCalendarNotFound

// Source provides calendar snapshots. The store implements it; MapSource
// serves in-memory templates.
type Source interface {
	Snapshot(ctx context.Context, id string) (ir.Calendar, error)
}

// Versioner is implemented by sources that can report a calendar's current
// version without reading the whole snapshot. A zero version means the
// source has no version for id and the snapshot must be fingerprinted.
type Versioner interface {
	Version(ctx context.Context, id string) (int64, error)
}

type entry struct {
	compiled *compiler.Compiled
	version  int64
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Entries  int   `json:"entries"`
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Compiles int64 `json:"compiles"`
}

// Cache maps calendar ids to their most recently compiled snapshot.
//
// Thread-safety: All methods are safe for concurrent use.
type Cache struct {
	source Source
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group

	hits     atomic.Int64
	misses   atomic.Int64
	compiles atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for compile events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates an empty cache reading snapshots from src. src may be nil
// when only Compile is used.
func New(src Source, opts ...Option) *Cache {
	c := &Cache{
		source:  src,
		logger:  slog.Default(),
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the compiled form of the current snapshot of id, compiling on
// a miss. When the source is a Versioner and reports a non-zero version, a
// hit is served without reading the snapshot.
func (c *Cache) Get(ctx context.Context, id string) (*compiler.Compiled, error) {
	if c.source == nil {
		return nil, fmt.Errorf("cache: no source configured")
	}
	if vs, ok := c.source.(Versioner); ok {
		version, err := vs.Version(ctx, id)
		if err != nil {
			return nil, err
		}
		if version > 0 {
			if compiled, ok := c.lookup(compiler.VersionKey(id, version)); ok {
				c.hits.Add(1)
				return compiled, nil
			}
		}
	}
	cal, err := c.source.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Compile(cal)
}

// Compile returns the compiled form of cal, reusing a cached compilation
// when the calendar id and marker match.
func (c *Cache) Compile(cal ir.Calendar) (*compiler.Compiled, error) {
	key, err := compiler.KeyFor(cal)
	if err != nil {
		return nil, fmt.Errorf("cache key for %q: %w", cal.ID, err)
	}

	if compiled, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return compiled, nil
	}
	c.misses.Add(1)

	v, err, shared := c.group.Do(key.String(), func() (any, error) {
		if compiled, ok := c.lookup(key); ok {
			return compiled, nil
		}

		compiled, err := compiler.Compile(cal)
		if err != nil {
			return nil, err
		}
		c.compiles.Add(1)
		c.store(cal, compiled)

		c.logger.Debug("calendar compiled",
			"calendar", cal.ID,
			"marker", key.Marker,
			"depth", compiled.Depth(),
		)
		return compiled, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("compile shared with concurrent caller", "key", key.String())
	}
	return v.(*compiler.Compiled), nil
}

func (c *Cache) lookup(key compiler.Key) (*compiler.Compiled, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key.CalendarID]
	if !ok || e.compiled.Key() != key {
		return nil, false
	}
	return e.compiled, true
}

// store replaces the entry for the calendar. An older store version never
// overwrites a newer one that finished compiling first.
func (c *Cache) store(cal ir.Calendar, compiled *compiler.Compiled) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[cal.ID]; ok && cal.Version > 0 && old.version > cal.Version {
		return
	}
	c.entries[cal.ID] = entry{compiled: compiled, version: cal.Version}
}

// Peek returns the cached compilation for id without consulting the source.
func (c *Cache) Peek(id string) (*compiler.Compiled, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e.compiled, ok
}

// Invalidate drops the cached compilation for id. It reports whether an
// entry was present.
func (c *Cache) Invalidate(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	delete(c.entries, id)
	return ok
}

// Len returns the number of cached calendars.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit, miss and compile counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries:  c.Len(),
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Compiles: c.compiles.Load(),
	}
}
