// Package httpapi serves the calendar service over HTTP with a chi router.
//
// Every response is JSON. Successes are wrapped as {"data": ...}; failures
// as {"error", "code", "details"}.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/worldcal/internal/engine"
	"github.com/roach88/worldcal/internal/service"
	"github.com/roach88/worldcal/internal/timeline"
)

// Publisher broadcasts calendar invalidations to other processes.
// *cache.Invalidator satisfies it.
type Publisher interface {
	Publish(ctx context.Context, id string) error
}

// Option configures the router.
type Option func(*handler)

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *handler) { h.logger = l }
}

// WithTimeout bounds each request. Anchor generation observes the
// request context and stops when it expires.
func WithTimeout(d time.Duration) Option {
	return func(h *handler) { h.timeout = d }
}

// WithPublisher broadcasts invalidations after dropping the local entry.
func WithPublisher(p Publisher) Option {
	return func(h *handler) { h.publisher = p }
}

type handler struct {
	svc       *service.Service
	logger    *slog.Logger
	timeout   time.Duration
	publisher Publisher
}

// NewRouter builds the HTTP routes over svc.
func NewRouter(svc *service.Service, opts ...Option) http.Handler {
	h := &handler{svc: svc, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(h.logRequests)
	r.Use(chimw.Recoverer)
	if h.timeout > 0 {
		r.Use(chimw.Timeout(h.timeout))
	}
	r.Use(chimw.CleanPath)

	r.Get("/healthz", h.healthz)
	r.Get("/scales", h.scales)

	r.Route("/calendars/{id}", func(r chi.Router) {
		r.Get("/", h.describe)
		r.Get("/parse", h.parse)
		r.Get("/format", h.format)
		r.Get("/anchors", h.anchors)
		r.Post("/closest", h.closest)
		r.Post("/invalidate", h.invalidate)
	})

	return r
}

// Server wraps http.Server with the worldcal router.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger: logger,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// ListenAndServe blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	s.logger.Info("server starting", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server, waiting up to timeout for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.DebugContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	ok(w, map[string]string{"status": "ok"})
}

func (h *handler) scales(w http.ResponseWriter, _ *http.Request) {
	ok(w, timeline.Scales())
}

type levelView struct {
	Depth   int      `json:"depth"`
	Units   []string `json:"units"`
	MinSpan int64    `json:"min_span"`
	MaxSpan int64    `json:"max_span"`
	Labeled bool     `json:"labeled"`
}

type calendarView struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Key           string      `json:"key"`
	Origin        int64       `json:"origin"`
	Levels        []levelView `json:"levels"`
	Presentations []string    `json:"presentations"`
}

func (h *handler) describe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.svc.Compiled(r.Context(), id)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	view := calendarView{
		ID:            id,
		Name:          c.Name(),
		Key:           c.Key().String(),
		Origin:        c.Origin(),
		Levels:        []levelView{},
		Presentations: []string{},
	}
	for _, l := range c.Levels() {
		lv := levelView{Depth: l.Depth, MinSpan: l.MinSpan, MaxSpan: l.MaxSpan, Labeled: l.Labeled}
		for _, u := range l.Units {
			lv.Units = append(lv.Units, string(u))
		}
		view.Levels = append(view.Levels, lv)
	}
	for _, p := range c.Presentations() {
		view.Presentations = append(view.Presentations, p.Name)
	}
	ok(w, view)
}

type entryView struct {
	Unit       string  `json:"unit"`
	Name       string  `json:"name"`
	Depth      int     `json:"depth"`
	Value      int64   `json:"value"`
	Display    string  `json:"display"`
	Start      int64   `json:"start"`
	Span       int64   `json:"span"`
	Label      *string `json:"label,omitempty"`
	ShortLabel *string `json:"short_label,omitempty"`
}

type parseView struct {
	Timestamp int64       `json:"timestamp"`
	Remainder int64       `json:"remainder"`
	Entries   []entryView `json:"entries"`
}

func newParseView(p engine.ParsedTime) parseView {
	view := parseView{Timestamp: p.Timestamp, Remainder: p.Remainder, Entries: []entryView{}}
	for _, e := range p.Entries {
		view.Entries = append(view.Entries, entryView{
			Unit:       string(e.Unit.ID),
			Name:       e.Unit.Title(),
			Depth:      e.Depth,
			Value:      e.Value,
			Display:    engine.RenderValue(e),
			Start:      e.Start,
			Span:       e.Span,
			Label:      e.Label,
			ShortLabel: e.ShortLabel,
		})
	}
	return view
}

func (h *handler) parse(w http.ResponseWriter, r *http.Request) {
	t, err := queryInt(r, "t")
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	p, err := h.svc.Parse(r.Context(), chi.URLParam(r, "id"), t)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, newParseView(p))
}

type formatView struct {
	Timestamp int64    `json:"timestamp"`
	Text      string   `json:"text"`
	Skipped   []string `json:"skipped,omitempty"`
}

func (h *handler) format(w http.ResponseWriter, r *http.Request) {
	t, err := queryInt(r, "t")
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	presentation := r.URL.Query().Get("presentation")

	rendered, err := h.svc.Format(r.Context(), chi.URLParam(r, "id"), presentation, t)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	view := formatView{Timestamp: t, Text: rendered.Text}
	for _, u := range rendered.Skipped {
		view.Skipped = append(view.Skipped, string(u))
	}
	ok(w, view)
}

type anchorsView struct {
	Scale   timeline.ScaleLevel `json:"scale"`
	Range   timeline.Range      `json:"range"`
	Anchors []timeline.Anchor   `json:"anchors"`
}

func (h *handler) anchors(w http.ResponseWriter, r *http.Request) {
	scale, err := queryInt(r, "scale")
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	from, err := queryInt(r, "from")
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	to, err := queryInt(r, "to")
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	rng := timeline.Range{From: from, To: to}
	anchors, err := h.svc.Anchors(r.Context(), chi.URLParam(r, "id"), int(scale), rng)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	level, _ := timeline.ScaleByIndex(int(scale))
	ok(w, anchorsView{Scale: level, Range: rng, Anchors: anchors})
}

type closestRequest struct {
	Anchors []int64 `json:"anchors"`
	Query   int64   `json:"query"`
}

type closestView struct {
	Closest int64 `json:"closest"`
	Found   bool  `json:"found"`
}

func (h *handler) closest(w http.ResponseWriter, r *http.Request) {
	var req closestRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if !slices.IsSorted(req.Anchors) {
		fail(w, r, h.logger, &badRequest{msg: "anchors must be sorted ascending"})
		return
	}
	v, found := h.svc.Closest(req.Anchors, req.Query)
	ok(w, closestView{Closest: v, Found: found})
}

type invalidateView struct {
	ID      string `json:"id"`
	Dropped bool   `json:"dropped"`
}

func (h *handler) invalidate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	dropped := h.svc.Invalidate(id)
	if h.publisher != nil {
		if err := h.publisher.Publish(r.Context(), id); err != nil {
			fail(w, r, h.logger, err)
			return
		}
	}
	ok(w, invalidateView{ID: id, Dropped: dropped})
}

func queryInt(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, &badRequest{msg: "missing query parameter " + strconv.Quote(name)}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &badRequest{msg: "query parameter " + strconv.Quote(name) + " must be an integer"}
	}
	return v, nil
}
