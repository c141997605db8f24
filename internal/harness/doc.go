// Package harness runs YAML scenarios against the real canvasync engine.
//
// A scenario names a scene fixture, a list of steps and assertions over the
// resulting update trace.
//
// # Scenario Format
//
//	name: marquee_drag
//	description: "Dragging a marquee selection emits one update per element"
//	fixture: ../fixtures/three_shapes.yaml
//	media:
//	  - {src: broken.mp4, fail: "decoder exploded"}
//	steps:
//	  - rebuild: {}
//	  - gesture: {ids: [c, a, b], move: [10, 0]}
//	  - zorder: {id: a, command: front}
//	  - add: {element: late, z: 7}
//	  - resize: {width: 480, height: 270}
//	assertions:
//	  - type: update_count
//	    kind: elementUpdated
//	    count: 3
//	  - type: update_order
//	    kind: elementUpdated
//	    ids: [a, b, c]
//	  - type: z_order
//	    ids: [b, c, a]
//	  - type: skipped
//	    ids: [broken]
//	  - type: expr
//	    expr: 'all(updates, .seq > 1)'
//
// # Assertion Types
//
//   - update_count: number of updates, optionally of one kind
//   - update_order: element ids of the updates (optionally of one kind), exactly
//   - z_order: final back-to-front element order
//   - skipped: element ids skipped by the last rebuild
//   - expr: an expr-lang boolean over updates, rebuilds and order
//
// # Deterministic Testing
//
// The harness uses:
//   - Fixed session id (from scenario.session or "scenario-session")
//   - Deterministic logical clock (testutil.DeterministicClock)
//   - Fake media sampler (testutil.FakeSampler)
//   - In-memory SQLite journal, read back as the trace
//
// This ensures identical traces across runs for golden file comparison.
package harness
