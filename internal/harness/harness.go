package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/worldcal/internal/cache"
	"github.com/roach88/worldcal/internal/engine"
	"github.com/roach88/worldcal/internal/loader"
	"github.com/roach88/worldcal/internal/service"
	"github.com/roach88/worldcal/internal/store"
	"github.com/roach88/worldcal/internal/timeline"
)

// Harness executes the steps of one scenario against a stored calendar.
type Harness struct {
	svc          *service.Service
	calendarID   string
	presentation string
	logger       *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. The
// calendar is imported into it and every step reads it back through the
// compiled-calendar cache.
//
// A returned error means the scenario could not be set up (unknown
// calendar, invalid template). Step failures are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context. Cancelling ctx stops
// anchor generation.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	cal, err := loader.Resolve(scenario.Calendar)
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	id, err := st.ImportCalendar(ctx, cal)
	if err != nil {
		return nil, fmt.Errorf("failed to import calendar: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Harness{
		svc:          service.New(cache.New(st, cache.WithLogger(logger)), logger),
		calendarID:   id,
		presentation: scenario.Presentation,
		logger:       logger,
	}

	// Compile once up front so a broken calendar fails the setup rather
	// than every step.
	if _, err := h.svc.Compiled(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to compile calendar: %w", err)
	}

	result := NewResult()
	result.Calendar = cal.Name
	for i, step := range scenario.Steps {
		ev := h.execute(ctx, step)
		ev.Step = i
		result.AddTrace(ev)

		for _, err := range checkStep(ev, step.Expect) {
			result.AddError(err.Error())
		}
		h.logger.Info("step completed", "step", i, "op", step.Op, "error", ev.Error)
	}
	return result, nil
}

func (h *Harness) execute(ctx context.Context, step Step) TraceEvent {
	switch step.Op {
	case OpFormat:
		return h.format(ctx, step)
	case OpParse:
		return h.parse(ctx, step)
	case OpAnchors:
		return h.anchors(ctx, step)
	case OpRoundtrip:
		return h.roundtrip(ctx, step)
	}
	return TraceEvent{Op: step.Op, Error: fmt.Sprintf("unknown op %q", step.Op)}
}

func (h *Harness) format(ctx context.Context, step Step) TraceEvent {
	tick := step.Tick
	ev := TraceEvent{Op: OpFormat, Tick: &tick, Presentation: step.Presentation}
	if ev.Presentation == "" {
		ev.Presentation = h.presentation
	}

	rendered, err := h.svc.Format(ctx, h.calendarID, ev.Presentation, tick)
	if err != nil {
		ev.Error = err.Error()
		return ev
	}
	ev.Text = rendered.Text
	return ev
}

func (h *Harness) parse(ctx context.Context, step Step) TraceEvent {
	tick := step.Tick
	ev := TraceEvent{Op: OpParse, Tick: &tick}

	p, err := h.svc.Parse(ctx, h.calendarID, tick)
	if err != nil {
		ev.Error = err.Error()
		return ev
	}
	ev.Values = make(map[string]int64, len(p.Entries))
	for _, e := range p.Entries {
		ev.Values[string(e.Unit.ID)] = e.Value
	}
	return ev
}

func (h *Harness) anchors(ctx context.Context, step Step) TraceEvent {
	scale := step.Scale
	rng := timeline.Range{From: step.From, To: step.To}
	ev := TraceEvent{Op: OpAnchors, Scale: &scale, Range: &rng}

	anchors, err := h.svc.Anchors(ctx, h.calendarID, scale, rng)
	if err != nil {
		ev.Error = err.Error()
		return ev
	}
	ev.Anchors = anchors
	return ev
}

// roundtrip decodes every stride-th timestamp in the range and checks that
// reconstructing it from its decoded values yields the same tick.
// Reconstruct is origin-relative.
func (h *Harness) roundtrip(ctx context.Context, step Step) TraceEvent {
	rng := timeline.Range{From: step.From, To: step.To}
	ev := TraceEvent{Op: OpRoundtrip, Range: &rng}

	c, err := h.svc.Compiled(ctx, h.calendarID)
	if err != nil {
		ev.Error = err.Error()
		return ev
	}

	for t := step.From; t <= step.To; t += step.Stride {
		p, err := engine.ParseTime(c, t)
		if err != nil {
			ev.Error = err.Error()
			return ev
		}
		if back := c.Origin() + engine.Reconstruct(c, p); back != t {
			ev.Error = fmt.Sprintf("tick %d decoded to %v and reconstructed as %d", t, p.Values(), back)
			return ev
		}
		ev.Checked++
		if t > step.To-step.Stride {
			break
		}
	}
	return ev
}
