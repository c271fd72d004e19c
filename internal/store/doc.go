// Package store provides SQLite-backed history of verification runs.
//
// Each run records one module checked against a set of dialects, and one
// result row per operation:
//   - runs: run ID (UUIDv7), logical sequence, module name, dialects, counts
//   - results: op index, kind name, form, fingerprint, failure stage, code, message
//
// Schemas themselves are never stored; only outcomes are.
//
// # Ordering
//
// Runs are ordered by seq, a logical counter assigned inside the insert
// transaction. Queries always order by seq (and op_index within a run), so
// listings are identical regardless of wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
