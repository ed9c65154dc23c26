// Package service exposes the calendar engine as stateless operations keyed
// by calendar id. Compiled calendars come from a shared cache; everything
// else is computed per call.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/worldcal/internal/cache"
	"github.com/roach88/worldcal/internal/compiler"
	"github.com/roach88/worldcal/internal/engine"
	"github.com/roach88/worldcal/internal/ir"
	"github.com/roach88/worldcal/internal/timeline"
)

// ErrUnknownPresentation is returned when a named presentation does not
// exist on the calendar.
var ErrUnknownPresentation = errors.New("unknown presentation")

// ErrUnknownScale is returned for a scale index outside the ladder.
var ErrUnknownScale = errors.New("unknown scale")

// Service wires the compiled-calendar cache to the engine.
//
// Thread-safety: All methods are safe for concurrent use.
type Service struct {
	cache  *cache.Cache
	logger *slog.Logger
}

// New creates a service over c. A nil logger uses slog.Default().
func New(c *cache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cache: c, logger: logger}
}

// Cache returns the underlying cache.
func (s *Service) Cache() *cache.Cache { return s.cache }

// Compiled returns the current compiled form of a calendar.
func (s *Service) Compiled(ctx context.Context, id string) (*compiler.Compiled, error) {
	c, err := s.cache.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("calendar %s: %w", id, err)
	}
	return c, nil
}

// Parse decodes timestamp t.
func (s *Service) Parse(ctx context.Context, id string, t int64) (engine.ParsedTime, error) {
	c, err := s.Compiled(ctx, id)
	if err != nil {
		return engine.ParsedTime{}, err
	}
	return engine.ParseTime(c, t)
}

// Format decodes t and renders it through the named presentation, or the
// calendar's first presentation when presentation is empty.
func (s *Service) Format(ctx context.Context, id, presentation string, t int64) (engine.Rendered, error) {
	c, err := s.Compiled(ctx, id)
	if err != nil {
		return engine.Rendered{}, err
	}
	pres, ok := c.Presentation(presentation)
	if !ok {
		if presentation == "" {
			// No presentation authored: render nothing rather than fail.
			pres = ir.Presentation{}
		} else {
			return engine.Rendered{}, fmt.Errorf("%w: %q on calendar %s", ErrUnknownPresentation, presentation, id)
		}
	}

	p, err := engine.ParseTime(c, t)
	if err != nil {
		return engine.Rendered{}, err
	}

	r := engine.Render(p, pres)
	if len(r.Skipped) > 0 {
		s.logger.Debug("presentation references units missing from calendar",
			"calendar", id,
			"presentation", pres.ID,
			"skipped", r.Skipped,
		)
	}
	return r, nil
}

// Anchors generates timeline anchors for a scale index and range.
func (s *Service) Anchors(ctx context.Context, id string, scaleIndex int, r timeline.Range) ([]timeline.Anchor, error) {
	scale, ok := timeline.ScaleByIndex(scaleIndex)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownScale, scaleIndex)
	}
	c, err := s.Compiled(ctx, id)
	if err != nil {
		return nil, err
	}

	anchors, err := timeline.GenerateAnchors(ctx, c, scale, r)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Debug("anchor generation cancelled", "calendar", id, "scale", scale.Label)
		}
		return nil, err
	}
	return anchors, nil
}

// Closest snaps q to the nearest of the given sorted anchors.
func (s *Service) Closest(anchors []int64, q int64) (int64, bool) {
	return timeline.ClosestOK(anchors, q)
}

// Invalidate drops a calendar from the cache.
func (s *Service) Invalidate(id string) bool {
	dropped := s.cache.Invalidate(id)
	s.logger.Info("calendar invalidated", "calendar", id, "dropped", dropped)
	return dropped
}
