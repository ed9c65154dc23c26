// Package timeline drives the zoomable timeline view: a fixed ladder of
// scale levels, grid anchors with label sizes for a visible range, and
// snapping of a pointer position to the nearest anchor.
package timeline
