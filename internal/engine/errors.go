package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/worldcal/internal/ir"
)

// RangeError reports a timestamp outside the supported bound, either as
// given or once the calendar origin is subtracted. The engine never wraps
// or clamps; callers decide whether to reject or clamp.
type RangeError struct {
	// Timestamp is the rejected input.
	Timestamp int64

	// Origin is the calendar origin the offset was computed against.
	Origin int64
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	if e.Origin == 0 {
		return fmt.Sprintf("RANGE_EXCEEDED: timestamp %d outside ±%d", e.Timestamp, ir.TimestampBound)
	}
	return fmt.Sprintf("RANGE_EXCEEDED: timestamp %d (origin %d) outside ±%d", e.Timestamp, e.Origin, ir.TimestampBound)
}

// IsRangeError returns true if the error reports an out-of-range timestamp.
// Uses errors.As to handle wrapped errors.
func IsRangeError(err error) bool {
	var re *RangeError
	return errors.As(err, &re)
}
