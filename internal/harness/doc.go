// Package harness runs withdef scenarios deterministically.
//
// A scenario drives one mounted container through a sequence of steps
// against a real definition store, a real dispatcher, and an in-memory
// definition index, and records what the container did as a trace.
//
// # Scenario Format
//
//	name: fetch_then_render
//	description: "What this scenario validates"
//	index:
//	  - repo: github.com/a/b
//	    rev: main
//	    path: GoPackage/github.com/a/b/-/Foo
//	    name: Foo
//	    kind: func
//	steps:
//	  - props: {repo: github.com/a/b, rev: main, splat: ["", "GoPackage/github.com/a/b/-/Foo"]}
//	  - fetch: true
//	  - put: {repo: github.com/a/b, rev: main, path: Other, error: {status: 410, message: gone}}
//	  - highlight: "github.com/a/b@main/-/def/Other"
//	  - clear_highlight: true
//	  - unmount: true
//	assertions:
//	  - type: fetch_count
//	    count: 1
//	  - type: view
//	    kind: normal
//
// The first props step mounts the container; later ones update props.
// Requests stay queued in the dispatcher until a fetch step delivers them
// to the index backend. Every step ends by draining the container queue.
//
// # Trace Events
//
//   - want: the container dispatched a fetch request
//   - fetch: the index backend answered a request (outcome from the fetch log)
//   - report: a record error reached the status reporter
//   - render: the container produced a view
//
// # Assertion Types
//
//   - fetch_count: number of want events, optionally for one def path
//   - outcome_count: number of fetch events with a given outcome
//   - report_count: number of report events
//   - render_count: number of render events
//   - view: fields of the final view (subset match)
//
// # Deterministic Testing
//
// Request IDs come from testutil.SequentialIDs ("req-1", "req-2", ...),
// trace seq values from testutil.Sequence, and logs are discarded, so the
// same scenario always yields the same trace for golden comparison.
package harness
