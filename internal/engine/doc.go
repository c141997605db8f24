// Package engine keeps the surface consistent with the project model.
//
// ARCHITECTURE:
//
// The Engine owns the canvas, the SurfaceMetadata and the last known
// elements. The timeline collaborator stays the source of truth: the engine
// never edits elements on its own, it only emits Updates describing what a
// committed gesture or a stacking command changed.
//
// Rebuild flow:
//  1. A rebuild takes a new generation from the logical clock.
//  2. Every element is materialized concurrently by its kind's handler.
//     zOrder is fixed when the materialization starts.
//  3. Handles reach the canvas through a generation sink; writes from a
//     superseded generation are dropped.
//  4. When all materializations settle the canvas is resorted once, the
//     watermark is added on top and a render is requested.
//
// Failures never abort a rebuild. A failed or unknown element is logged,
// recorded in the RebuildReport and skipped.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Generations and update sequence numbers come from one monotonic clock.
// NEVER use wall-clock time for ordering.
//
// Deterministic Stacking:
// Stacking depends only on zOrder, role and element id, never on which
// materialization finished first.
package engine
