// Package loader turns calendar templates into ir.Calendar values.
//
// Templates are authored in CUE or YAML and validated against the embedded
// #Calendar schema (schema.cue). Four templates ship with the binary:
// gregorian, darian, golarion and quadrum.
//
// Relations are listed without ids or positions. Each parent's children are
// numbered in list order: ids are "<parent>-<n>" and positions n*Gap.
package loader
