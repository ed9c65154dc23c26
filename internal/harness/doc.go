// Package harness runs calendar conformance scenarios.
//
// A scenario names a calendar (a built-in template or a template file) and
// a list of steps. Each step formats, decodes or anchors a timestamp and
// checks the outcome against its expect clause. Run loads the calendar,
// imports it into a fresh in-memory store and drives every step through
// the same service the HTTP adapter uses, so scenarios exercise storage,
// caching, compilation and the engine together.
//
// # Scenario Format
//
//	name: gregorian_new_year
//	description: "Midnight on the first of January"
//	calendar: gregorian          # template name, or a path relative to this file
//	presentation: long           # default for format steps
//	steps:
//	  - op: format
//	    tick: 0
//	    expect:
//	      text: "00:00 January 01, 2026"
//	  - op: parse
//	    tick: 1501
//	    expect:
//	      values: {day: 1, hour: 1, minute: 1}
//	  - op: anchors
//	    scale: 0
//	    from: 0
//	    to: 1440
//	    expect:
//	      count: 25
//	      sizes: {0: large, 1440: medium}
//	      snap:
//	        - {query: 90, want: 60}
//	  - op: roundtrip
//	    from: -1440
//	    to: 1440
//	    stride: 7
//
// Parse values are zero-based instance indexes, before the unit's base is
// added. An expect clause may carry error: <substring> to assert that the
// step fails.
//
// # Golden Files
//
// RunWithGolden snapshots the full trace under testdata/golden. Regenerate
// with:
//
//	go test ./internal/harness -update
package harness
