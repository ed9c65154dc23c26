package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/roach88/worldcal/internal/cache"
	"github.com/roach88/worldcal/internal/compiler"
	"github.com/roach88/worldcal/internal/engine"
	"github.com/roach88/worldcal/internal/ir"
	"github.com/roach88/worldcal/internal/loader"
	"github.com/roach88/worldcal/internal/service"
	"github.com/roach88/worldcal/internal/timeline"
)

// CLI error codes. E001-E006 are shared with the loader.
const (
	ErrCodeGeneric     = loader.ErrCodeGeneric
	ErrCodeWriteFailed = "E007" // Output file could not be written
	ErrCodeBadArgument = "E008" // Malformed command argument
	ErrCodeStore       = "E009" // Calendar store failure
)

// argError is a malformed positional argument or flag value.
type argError struct{ msg string }

func (e *argError) Error() string { return e.msg }

func badArgument(format string, args ...any) error {
	return &argError{msg: fmt.Sprintf(format, args...)}
}

// sourcePosition is the file location reported with template errors.
type sourcePosition struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// errorCode maps err onto the code and details of the JSON error envelope.
func errorCode(err error) (string, any) {
	var (
		ae *argError
		le *loader.LoadError
		ce *compiler.CompileError
		se *storeError
	)
	switch {
	case errors.As(err, &ae):
		return ErrCodeBadArgument, nil
	case errors.As(err, &le):
		if le.Pos.IsValid() {
			return le.Code, sourcePosition{File: le.Pos.Filename(), Line: le.Pos.Line(), Column: le.Pos.Column()}
		}
		return le.Code, nil
	case errors.As(err, &ce):
		if len(ce.Details) > 0 {
			return string(ce.Code), ce.Details
		}
		if len(ce.Path) > 0 {
			return string(ce.Code), ce.Path
		}
		return string(ce.Code), nil
	case engine.IsRangeError(err):
		return "RANGE_EXCEEDED", nil
	case errors.Is(err, service.ErrUnknownPresentation):
		return "UNKNOWN_PRESENTATION", nil
	case errors.Is(err, service.ErrUnknownScale):
		return "UNKNOWN_SCALE", nil
	case errors.Is(err, timeline.ErrTooManyAnchors):
		return "TOO_MANY_ANCHORS", nil
	case errors.Is(err, ir.ErrCalendarNotFound):
		return "CALENDAR_NOT_FOUND", nil
	case errors.As(err, &se):
		return ErrCodeStore, nil
	}
	return ErrCodeGeneric, nil
}

// storeError marks a failure of the SQLite calendar store.
type storeError struct{ err error }

func (e *storeError) Error() string { return "store: " + e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

// parseTick reads a signed tick argument.
func parseTick(name, s string) (int64, error) {
	t, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, badArgument("%s must be an integer tick, got %q", name, s)
	}
	return t, nil
}

// openService loads a template by name or path and serves it from memory.
// The returned id addresses the calendar in the service.
func openService(ctx context.Context, ref string, logger *slog.Logger) (*service.Service, string, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cal, err := loader.Resolve(ref)
	if err != nil {
		return nil, "", err
	}

	svc := service.New(cache.New(cache.NewMapSource(cal), cache.WithLogger(logger)), logger)
	if _, err := svc.Compiled(ctx, cal.ID); err != nil {
		return nil, "", err
	}
	return svc, cal.ID, nil
}
