package ir

import "errors"

// ErrCalendarNotFound is returned by calendar sources that have no calendar
// with the requested id.
var ErrCalendarNotFound = errors.New("calendar not found")
