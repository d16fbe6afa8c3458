// Package reorder connects the ordering engine to the product store.
//
// The engine is pure: it maps a product list to a batch. Service supplies the
// rest of a mutation's lifecycle:
//
//   - read a snapshot of products and sector revisions
//   - lock the touched sectors (sorted, so multi-sector moves cannot deadlock)
//   - recompute under lock and commit the batch atomically with the revisions read
//   - retry when another writer won the race, up to DefaultMaxAttempts
//
// Rejections from the engine (unknown product, out-of-range target, cross-sector
// swap, broken invariant) are returned to the caller unchanged and never retried.
//
// Batch IDs are UUIDv7 by default so the log sorts by creation time. Every
// outcome is counted in Metrics.
package reorder
