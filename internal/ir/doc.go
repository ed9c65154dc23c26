// Package ir provides the calendar intermediate representation for worldcal.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the authored calendar
// model as the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Timestamps are int64 tick counts from a calendar origin; the application
//     uses minutes. Nothing here knows about wall-clock time or time zones.
//   - Units are referenced by UnitID, never by pointer. Relations are plain
//     (parent, child) edges so cycle detection stays an index-graph problem.
//   - Sibling relations are ordered by their sparse Position key.
//   - All JSON and YAML tags use snake_case.
package ir
