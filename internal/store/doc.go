// Package store provides SQLite-backed durable storage for canvasync
// session journals.
//
// The store implements an append-only log with:
//   - Rebuilds: one row per settled scene rebuild (generation, skips, order)
//   - Updates: every message the engine sent to the timeline
//
// # Critical Patterns
//
// Logical Identity and Time
//   - All ordering uses seq/generation INTEGER (logical clock), NEVER timestamps
//   - Session ids are UUIDv7 so sessions sort by start time as plain text
//
// Deterministic Query Results
//   - All queries order by their logical key with COLLATE BINARY tiebreaks
//
// Idempotent Writes
//   - (session, seq) and (session, generation) are primary keys and
//     duplicate writes are ignored
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
