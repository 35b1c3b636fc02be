// Package store defines the checkpoint persistence contract used by the
// graph runner, together with swappable backends.
//
// The runner only ever talks to the CheckpointStore interface: one
// checkpoint per thread ID, overwritten after every completed step.
// Backends live in subpackages and all satisfy the same visibility
// guarantee, so they can be exchanged without touching runner logic:
//
//   - store/memory: mutex-guarded in-process map (the default for tests
//     and examples)
//   - store/file: one JSON document per thread under a directory, written
//     atomically via rename
//   - store/redis: Redis-backed, JSON values with optional TTL
//   - store/postgres: PostgreSQL JSONB upsert keyed by thread_id
//   - store/sqlite: SQLite upsert keyed by thread_id
//
// store/factory opens any of the above from a YAML configuration
// document, for deployments that select the backend at run time.
package store
