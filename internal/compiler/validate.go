package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/worldcal/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrUnknownUnit      = "E201" // relation references a unit that does not exist
	ErrInvalidRepeats   = "E202" // repeats must be >= 1
	ErrInvalidLeafSpan  = "E203" // leaf unit needs a positive span
	ErrDuplicateUnit    = "E204" // duplicate unit id
	ErrOriginOutOfRange = "E205" // origin outside the timestamp bound
	ErrMultipleRoots    = "E206" // more than one top-level unit with children
	ErrSpanOverflow     = "E207" // cumulative span does not fit the tick axis
	ErrInvalidFormat    = "E208" // unknown format mode
	ErrEmptyUnitID      = "E209" // unit id is empty
	ErrInvalidPad       = "E210" // pad width out of range
)

// MaxPad is the widest zero-padding a unit may request.
const MaxPad = 20

// ValidationError represents a calendar validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a calendar snapshot for structural problems that can be
// detected without walking the unit graph.
// Returns all errors found (does not fail-fast).
//
// Cycles and depth are checked separately by Compile because they need a
// graph traversal.
func Validate(cal ir.Calendar) []ValidationError {
	var errs []ValidationError

	if !ir.InBounds(cal.Origin) {
		errs = append(errs, ValidationError{
			Field:   "origin",
			Message: fmt.Sprintf("origin %d outside ±%d", cal.Origin, ir.TimestampBound),
			Code:    ErrOriginOutOfRange,
		})
	}

	known := make(map[ir.UnitID]bool, len(cal.Units))
	hasChildren := make(map[ir.UnitID]bool)
	for _, r := range cal.Relations {
		hasChildren[r.Parent] = true
	}

	for i, u := range cal.Units {
		field := fmt.Sprintf("units[%d]", i)

		if strings.TrimSpace(string(u.ID)) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: "unit id is required",
				Code:    ErrEmptyUnitID,
			})
			continue
		}

		if known[u.ID] {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicate unit id %q", u.ID),
				Code:    ErrDuplicateUnit,
			})
		}
		known[u.ID] = true

		if u.Format != "" && !ir.ValidFormatModes[u.Format] {
			errs = append(errs, ValidationError{
				Field:   field + ".format",
				Message: fmt.Sprintf("invalid format mode %q, must be numeric, padded, label or short_label", u.Format),
				Code:    ErrInvalidFormat,
			})
		}

		if u.Pad < 0 || u.Pad > MaxPad {
			errs = append(errs, ValidationError{
				Field:   field + ".pad",
				Message: fmt.Sprintf("pad %d outside [0, %d]", u.Pad, MaxPad),
				Code:    ErrInvalidPad,
			})
		}

		if !hasChildren[u.ID] && u.Span < 1 {
			errs = append(errs, ValidationError{
				Field:   field + ".span",
				Message: fmt.Sprintf("leaf unit %q needs a span of at least 1 tick", u.ID),
				Code:    ErrInvalidLeafSpan,
			})
		}
	}

	for i, r := range cal.Relations {
		field := fmt.Sprintf("relations[%d]", i)

		if !known[r.Parent] {
			errs = append(errs, ValidationError{
				Field:   field + ".parent",
				Message: fmt.Sprintf("unknown parent unit %q", r.Parent),
				Code:    ErrUnknownUnit,
			})
		}
		if !known[r.Child] {
			errs = append(errs, ValidationError{
				Field:   field + ".child",
				Message: fmt.Sprintf("unknown child unit %q", r.Child),
				Code:    ErrUnknownUnit,
			})
		}
		if r.Repeats < 1 {
			errs = append(errs, ValidationError{
				Field:   field + ".repeats",
				Message: fmt.Sprintf("repeats must be >= 1, got %d", r.Repeats),
				Code:    ErrInvalidRepeats,
			})
		}
	}

	return errs
}
