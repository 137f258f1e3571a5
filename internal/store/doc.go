// Package store provides SQLite-backed durable storage for presale state.
//
// The store holds:
//   - Slots: the current data, owner and lamports of every known key
//   - Genesis slots: the snapshot written once at init, used by replay
//   - Journal: one entry per invocation, applied or rejected
//   - Effects: transfers performed by an applied invocation
//   - Meta: program id and initializer identity
//
// # Ordering
//
// Journal reads use ORDER BY seq ASC, id ASC COLLATE BINARY and slot reads
// use ORDER BY key COLLATE BINARY so replays observe identical results.
//
// # Numbers
//
// u64 quantities are stored as decimal TEXT. SQLite INTEGER is signed and the
// driver rejects uint64 values with the high bit set.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
