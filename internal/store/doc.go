// Package store provides SQLite-backed storage for bakery products and their
// packed order values.
//
// The store is the persistence collaborator of the ordering engine:
//   - FetchAll / Snapshot: read the current product collection
//   - CommitBatch: write one engine batch atomically (all-or-nothing)
//   - Subscribe: in-process change notification after each commit
//
// # Concurrency
//
// Every sector has a revision number. CommitBatch takes the revisions the caller
// read before computing the batch and fails with ErrRevisionConflict if any
// touched sector moved in between. Callers serialize their own read-compute-write
// cycle per sector; the revision check catches writers in other processes.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
