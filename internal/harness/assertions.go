package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/worldcal/internal/timeline"
)

// AssertionError is returned when a step's outcome does not match its
// expect clause.
type AssertionError struct {
	Step     int
	Op       string
	Check    string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "steps[%d] %s: %s mismatch\n", e.Step, e.Op, e.Check)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// checkStep compares a step's trace event against its expect clause.
// A nil expect clause checks nothing.
func checkStep(ev TraceEvent, expect *Expect) []error {
	if expect == nil {
		if ev.Error != "" {
			return []error{fmt.Errorf("steps[%d] %s: %s", ev.Step, ev.Op, ev.Error)}
		}
		return nil
	}

	if expect.Error != "" || ev.Error != "" {
		return checkError(ev, expect.Error)
	}

	var errs []error
	if expect.Text != nil && *expect.Text != ev.Text {
		errs = append(errs, &AssertionError{
			Step: ev.Step, Op: ev.Op, Check: "text",
			Expected: fmt.Sprintf("%q", *expect.Text),
			Actual:   fmt.Sprintf("%q", ev.Text),
		})
	}
	errs = append(errs, checkValues(ev, expect.Values)...)
	errs = append(errs, checkAnchors(ev, expect)...)
	return errs
}

func checkError(ev TraceEvent, want string) []error {
	switch {
	case want == "":
		return []error{fmt.Errorf("steps[%d] %s: %s", ev.Step, ev.Op, ev.Error)}
	case ev.Error == "":
		return []error{&AssertionError{
			Step: ev.Step, Op: ev.Op, Check: "error",
			Expected: fmt.Sprintf("error containing %q", want),
			Actual:   "no error",
		}}
	case !strings.Contains(ev.Error, want):
		return []error{&AssertionError{
			Step: ev.Step, Op: ev.Op, Check: "error",
			Expected: fmt.Sprintf("error containing %q", want),
			Actual:   ev.Error,
		}}
	}
	return nil
}

func checkValues(ev TraceEvent, want map[string]int64) []error {
	units := make([]string, 0, len(want))
	for u := range want {
		units = append(units, u)
	}
	sort.Strings(units)

	var errs []error
	for _, u := range units {
		got, ok := ev.Values[u]
		switch {
		case !ok:
			errs = append(errs, &AssertionError{
				Step: ev.Step, Op: ev.Op, Check: "values." + u,
				Expected: fmt.Sprint(want[u]),
				Actual:   "unit not decoded",
			})
		case got != want[u]:
			errs = append(errs, &AssertionError{
				Step: ev.Step, Op: ev.Op, Check: "values." + u,
				Expected: fmt.Sprint(want[u]),
				Actual:   fmt.Sprint(got),
			})
		}
	}
	return errs
}

func checkAnchors(ev TraceEvent, expect *Expect) []error {
	var errs []error
	if expect.Count != nil && *expect.Count != len(ev.Anchors) {
		errs = append(errs, &AssertionError{
			Step: ev.Step, Op: ev.Op, Check: "count",
			Expected: fmt.Sprint(*expect.Count),
			Actual:   fmt.Sprint(len(ev.Anchors)),
		})
	}

	if len(expect.Sizes) > 0 {
		sizes := make(map[int64]timeline.LabelSize, len(ev.Anchors))
		for _, a := range ev.Anchors {
			sizes[a.Timestamp] = a.Size
		}
		stamps := make([]int64, 0, len(expect.Sizes))
		for ts := range expect.Sizes {
			stamps = append(stamps, ts)
		}
		sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

		for _, ts := range stamps {
			want := expect.Sizes[ts]
			got, ok := sizes[ts]
			if !ok {
				errs = append(errs, &AssertionError{
					Step: ev.Step, Op: ev.Op, Check: fmt.Sprintf("sizes.%d", ts),
					Expected: want.String(),
					Actual:   "no anchor",
				})
				continue
			}
			if got != want {
				errs = append(errs, &AssertionError{
					Step: ev.Step, Op: ev.Op, Check: fmt.Sprintf("sizes.%d", ts),
					Expected: want.String(),
					Actual:   got.String(),
				})
			}
		}
	}

	stamps := timeline.Timestamps(ev.Anchors)
	for _, s := range expect.Snap {
		got, ok := timeline.ClosestOK(stamps, s.Query)
		if !ok || got != s.Want {
			actual := fmt.Sprint(got)
			if !ok {
				actual = "no anchors"
			}
			errs = append(errs, &AssertionError{
				Step: ev.Step, Op: ev.Op, Check: fmt.Sprintf("snap(%d)", s.Query),
				Expected: fmt.Sprint(s.Want),
				Actual:   actual,
			})
		}
	}
	return errs
}
