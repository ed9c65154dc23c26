package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/worldcal/internal/cache"
	"github.com/roach88/worldcal/internal/service"
	"github.com/roach88/worldcal/internal/testutil"
	"github.com/roach88/worldcal/internal/timeline"
)

type recordingPublisher struct {
	ids []string
	err error
}

func (p *recordingPublisher) Publish(_ context.Context, id string) error {
	p.ids = append(p.ids, id)
	return p.err
}

func newTestRouter(t *testing.T, opts ...Option) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := cache.NewMapSource(testutil.GregorianCalendar(), testutil.ClockCalendar())
	svc := service.New(cache.New(src, cache.WithLogger(logger)), logger)
	return NewRouter(svc, append([]Option{WithLogger(logger)}, opts...)...)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var env struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()

	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decodeData[map[string]string](t, rec)["status"])
}

func TestScales(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/scales", "")

	require.Equal(t, http.StatusOK, rec.Code)
	scales := decodeData[[]timeline.ScaleLevel](t, rec)
	assert.Equal(t, timeline.Scales(), scales)
}

func TestDescribe(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/calendars/gregorian", "")

	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeData[calendarView](t, rec)
	assert.Equal(t, "gregorian", view.ID)
	require.Len(t, view.Levels, 5)
	assert.Equal(t, []string{"year"}, view.Levels[0].Units)
	assert.True(t, view.Levels[1].Labeled)
	assert.Equal(t, []string{"long"}, view.Presentations)
}

func TestParse(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/calendars/clock/parse?t=1501", "")

	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeData[parseView](t, rec)
	require.Len(t, view.Entries, 3)
	assert.Equal(t, int64(1), view.Entries[0].Value)
	assert.Equal(t, "01", view.Entries[1].Display)
	assert.Equal(t, "01", view.Entries[2].Display)
	assert.Equal(t, int64(1500), view.Entries[1].Start)
}

func TestParse_MissingTimestamp(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/calendars/clock/parse", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeBadRequest, decodeError(t, rec).Code)
}

func TestParse_OutOfRange(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/calendars/clock/parse?t=9223372036854775807", "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, CodeOutOfRange, decodeError(t, rec).Code)
}

func TestFormat(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/calendars/gregorian/format?t=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "00:00 January 01, 2026", decodeData[formatView](t, rec).Text)

	rec = do(t, h, http.MethodGet, "/calendars/clock/format?t=61&presentation=time", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "day 0 01:01", decodeData[formatView](t, rec).Text)
}

func TestFormat_UnknownPresentation(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/calendars/gregorian/format?t=0&presentation=nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeUnknownPresentation, decodeError(t, rec).Code)
}

func TestUnknownCalendar(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/calendars/atlantis/format?t=0", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, rec).Code)
}

func TestAnchors(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/calendars/gregorian/anchors?scale=0&from=0&to=1440", "")

	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeData[anchorsView](t, rec)
	assert.Equal(t, "1 day", view.Scale.Label)
	require.Len(t, view.Anchors, 25)
	assert.Equal(t, timeline.LabelLarge, view.Anchors[0].Size)
	assert.Equal(t, int64(1440), view.Anchors[24].Timestamp)
	assert.Equal(t, timeline.LabelMedium, view.Anchors[24].Size)
}

func TestAnchors_UnknownScale(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/calendars/gregorian/anchors?scale=40&from=0&to=1440", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeUnknownScale, decodeError(t, rec).Code)
}

func TestAnchors_BadRange(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/calendars/gregorian/anchors?scale=0&from=zero&to=1440", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClosest(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/calendars/gregorian/closest", `{"anchors":[0,60,120],"query":90}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, closestView{Closest: 60, Found: true}, decodeData[closestView](t, rec))

	rec = do(t, h, http.MethodPost, "/calendars/gregorian/closest", `{"anchors":[],"query":90}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeData[closestView](t, rec).Found)
}

func TestClosest_RejectsUnsortedAndBadJSON(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/calendars/gregorian/closest", `{"anchors":[60,0],"query":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/calendars/gregorian/closest", `{"anchors":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/calendars/gregorian/closest", `{"anchor":[0],"query":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidate(t *testing.T) {
	pub := &recordingPublisher{}
	h := newTestRouter(t, WithPublisher(pub))

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/calendars/clock/parse?t=0", "").Code)

	rec := do(t, h, http.MethodPost, "/calendars/clock/invalidate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, invalidateView{ID: "clock", Dropped: true}, decodeData[invalidateView](t, rec))
	assert.Equal(t, []string{"clock"}, pub.ids)

	rec = do(t, h, http.MethodPost, "/calendars/clock/invalidate", "")
	assert.False(t, decodeData[invalidateView](t, rec).Dropped)
}

func TestInvalidate_PublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis down")}
	h := newTestRouter(t, WithPublisher(pub))

	rec := do(t, h, http.MethodPost, "/calendars/clock/invalidate", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeInternal, decodeError(t, rec).Code)
	assert.NotContains(t, rec.Body.String(), "redis down")
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodDelete, "/healthz", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
