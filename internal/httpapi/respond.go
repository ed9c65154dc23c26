package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/roach88/worldcal/internal/compiler"
	"github.com/roach88/worldcal/internal/engine"
	"github.com/roach88/worldcal/internal/ir"
	"github.com/roach88/worldcal/internal/service"
	"github.com/roach88/worldcal/internal/timeline"
)

// Error codes carried in ErrorEnvelope.Code.
const (
	CodeBadRequest          = "BAD_REQUEST"
	CodeNotFound            = "CALENDAR_NOT_FOUND"
	CodeUnknownPresentation = "UNKNOWN_PRESENTATION"
	CodeUnknownScale        = "UNKNOWN_SCALE"
	CodeOutOfRange          = "OUT_OF_RANGE"
	CodeTooManyAnchors      = "TOO_MANY_ANCHORS"
	CodeTimeout             = "TIMEOUT"
	CodeInternal            = "INTERNAL"
)

// SuccessEnvelope wraps every successful response.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope wraps every error response.
type ErrorEnvelope struct {
	Error   string                     `json:"error"`
	Code    string                     `json:"code"`
	Details []compiler.ValidationError `json:"details,omitempty"`
}

// badRequest is a client error raised while reading request parameters.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, SuccessEnvelope{Data: data})
}

// fail maps err onto a status and error code. Unexpected errors are logged
// and their text is not sent to the client.
func fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, env := classify(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, env)
}

func classify(err error) (int, ErrorEnvelope) {
	var (
		br *badRequest
		ce *compiler.CompileError
	)
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, ErrorEnvelope{Error: br.msg, Code: CodeBadRequest}
	case errors.Is(err, ir.ErrCalendarNotFound):
		return http.StatusNotFound, ErrorEnvelope{Error: err.Error(), Code: CodeNotFound}
	case errors.Is(err, service.ErrUnknownPresentation):
		return http.StatusNotFound, ErrorEnvelope{Error: err.Error(), Code: CodeUnknownPresentation}
	case errors.Is(err, service.ErrUnknownScale):
		return http.StatusBadRequest, ErrorEnvelope{Error: err.Error(), Code: CodeUnknownScale}
	case engine.IsRangeError(err):
		return http.StatusUnprocessableEntity, ErrorEnvelope{Error: err.Error(), Code: CodeOutOfRange}
	case errors.Is(err, timeline.ErrTooManyAnchors):
		return http.StatusUnprocessableEntity, ErrorEnvelope{Error: err.Error(), Code: CodeTooManyAnchors}
	case errors.As(err, &ce):
		return http.StatusUnprocessableEntity, ErrorEnvelope{Error: ce.Message, Code: string(ce.Code), Details: ce.Details}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, ErrorEnvelope{Error: "request cancelled or timed out", Code: CodeTimeout}
	}
	return http.StatusInternalServerError, ErrorEnvelope{Error: "internal error", Code: CodeInternal}
}

func decodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return &badRequest{msg: "invalid JSON body: " + err.Error()}
	}
	return nil
}
