package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/worldcal/internal/cache"
	"github.com/roach88/worldcal/internal/engine"
	"github.com/roach88/worldcal/internal/testutil"
	"github.com/roach88/worldcal/internal/timeline"
)

func newService(t *testing.T) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := cache.NewMapSource(testutil.GregorianCalendar(), testutil.ClockCalendar())
	return New(cache.New(src, cache.WithLogger(logger)), logger)
}

func TestService_Format(t *testing.T) {
	s := newService(t)

	r, err := s.Format(context.Background(), "gregorian", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "00:00 January 01, 2026", r.Text)

	r, err = s.Format(context.Background(), "gregorian", "long", 365*1440)
	require.NoError(t, err)
	assert.Equal(t, "00:00 January 01, 2027", r.Text)
}

func TestService_FormatUnknownPresentation(t *testing.T) {
	s := newService(t)

	_, err := s.Format(context.Background(), "gregorian", "short", 0)
	assert.ErrorIs(t, err, ErrUnknownPresentation)
}

func TestService_UnknownCalendar(t *testing.T) {
	s := newService(t)

	_, err := s.Parse(context.Background(), "nope", 0)
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestService_ParseRange(t *testing.T) {
	s := newService(t)

	_, err := s.Parse(context.Background(), "clock", 1<<62)
	assert.True(t, engine.IsRangeError(err))
}

func TestService_Anchors(t *testing.T) {
	s := newService(t)

	anchors, err := s.Anchors(context.Background(), "gregorian", 0, timeline.Range{From: 0, To: 120})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 60, 120}, timeline.Timestamps(anchors))

	_, err = s.Anchors(context.Background(), "gregorian", 99, timeline.Range{From: 0, To: 120})
	assert.ErrorIs(t, err, ErrUnknownScale)
}

func TestService_Closest(t *testing.T) {
	s := newService(t)

	v, ok := s.Closest([]int64{0, 60, 120}, 95)
	require.True(t, ok)
	assert.Equal(t, int64(120), v)

	_, ok = s.Closest(nil, 5)
	assert.False(t, ok)
}

func TestService_Invalidate(t *testing.T) {
	s := newService(t)

	_, err := s.Compiled(context.Background(), "clock")
	require.NoError(t, err)
	assert.True(t, s.Invalidate("clock"))
	assert.Equal(t, 0, s.Cache().Len())
}
