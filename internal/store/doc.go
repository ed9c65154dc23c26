// Package store provides SQLite-backed storage for authored calendars.
//
// A calendar is stored as rows of units, parent/child relations and
// presentations. Sibling relations are ordered by sparse integer positions
// allocated with the position package; inserting between two adjacent
// positions resequences the siblings inside the same transaction.
//
// # Logical Versions
//
//   - Every mutation bumps calendars.version in the same transaction
//   - version is never derived from wall time
//   - Snapshot returns the version so caches can key compiled calendars
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// All reads order rows deterministically (position or authoring seq, then
// id COLLATE BINARY).
package store
