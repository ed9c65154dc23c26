package harness

import "github.com/roach88/worldcal/internal/timeline"

// TraceEvent records what one step observed.
type TraceEvent struct {
	Step int    `json:"step"`
	Op   string `json:"op"`

	Tick         *int64 `json:"tick,omitempty"`
	Presentation string `json:"presentation,omitempty"`
	Text         string `json:"text,omitempty"`

	// Values maps unit ids to zero-based decoded values.
	Values map[string]int64 `json:"values,omitempty"`

	Scale   *int              `json:"scale,omitempty"`
	Range   *timeline.Range   `json:"range,omitempty"`
	Anchors []timeline.Anchor `json:"anchors,omitempty"`

	// Checked is the number of timestamps a roundtrip step verified.
	Checked int `json:"checked,omitempty"`

	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step met its expect clause.
	Pass bool `json:"pass"`

	// Calendar is the name of the calendar the scenario ran against.
	Calendar string `json:"calendar"`

	// Trace holds one event per executed step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step's event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
