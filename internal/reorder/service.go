package reorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/bakeorder/internal/ordering"
	"github.com/roach88/bakeorder/internal/store"
)

const (
	// DefaultCommitTimeout bounds a single CommitBatch call.
	DefaultCommitTimeout = 5 * time.Second

	// DefaultMaxAttempts is how often a mutation is computed and committed before a
	// persistent revision conflict is returned to the caller.
	DefaultMaxAttempts = 3
)

// errSectorsMoved means the batch recomputed under lock touches sectors that were
// not locked. The attempt is retried like a revision conflict.
var errSectorsMoved = errors.New("touched sectors changed while acquiring locks")

// Result describes a committed (or no-op) mutation.
type Result struct {
	BatchID string         `json:"batch_id,omitempty"`
	Seq     int64          `json:"seq,omitempty"`
	Batch   ordering.Batch `json:"batch"`
}

// Committed reports whether the mutation wrote anything.
func (r Result) Committed() bool {
	return r.Seq > 0
}

// Service runs ordering operations against a store.
//
// Each mutation reads a snapshot, computes a batch with the engine, and commits
// it with the revisions of the touched sectors. Mutations touching a common
// sector are serialized within the process; writers in other processes are
// caught by the revision check and the mutation is recomputed.
//
// Thread-safety: all methods are safe for concurrent use.
type Service struct {
	store   *store.Store
	engine  *ordering.Engine
	ids     IDGenerator
	logger  *slog.Logger
	metrics *Metrics
	locks   *sectorLocks

	commitTimeout time.Duration
	maxAttempts   int
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator sets the batch ID generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Service) { s.ids = g }
}

// WithLogger sets the service logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the collectors updated by the service.
// Default: unregistered collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCommitTimeout bounds each commit. Default: DefaultCommitTimeout.
func WithCommitTimeout(d time.Duration) Option {
	return func(s *Service) { s.commitTimeout = d }
}

// WithMaxAttempts sets how many times a conflicting mutation is tried.
// Values below 1 are treated as 1.
func WithMaxAttempts(n int) Option {
	return func(s *Service) { s.maxAttempts = max(n, 1) }
}

// New creates a Service over st using eng for all ordering decisions.
func New(st *store.Store, eng *ordering.Engine, opts ...Option) *Service {
	s := &Service{
		store:         st,
		engine:        eng,
		ids:           UUIDv7Generator{},
		logger:        slog.Default(),
		locks:         newSectorLocks(),
		commitTimeout: DefaultCommitTimeout,
		maxAttempts:   DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s
}

// Engine returns the ordering engine.
func (s *Service) Engine() *ordering.Engine { return s.engine }

// Store returns the underlying store.
func (s *Service) Store() *store.Store { return s.store }

// MoveAdjacent moves id one place toward dir within its sector.
func (s *Service) MoveAdjacent(ctx context.Context, id string, dir ordering.Direction) (Result, error) {
	return s.mutate(ctx, ordering.OpMoveAdjacent, func(products []ordering.Product) (ordering.Batch, error) {
		return s.engine.MoveAdjacent(products, id, dir)
	})
}

// MoveToPosition moves id to sequence target within its sector.
func (s *Service) MoveToPosition(ctx context.Context, id string, target int) (Result, error) {
	return s.mutate(ctx, ordering.OpMoveToPosition, func(products []ordering.Product) (ordering.Batch, error) {
		return s.engine.MoveToPosition(products, id, target)
	})
}

// ChangeSector moves id into sector code at target (ordering.Append for the end).
func (s *Service) ChangeSector(ctx context.Context, id, code string, target int) (Result, error) {
	return s.mutate(ctx, ordering.OpChangeSector, func(products []ordering.Product) (ordering.Batch, error) {
		return s.engine.ChangeSector(products, id, code, target)
	})
}

// Swap exchanges the positions of two products of the same sector.
func (s *Service) Swap(ctx context.Context, id1, id2 string) (Result, error) {
	return s.mutate(ctx, ordering.OpSwap, func(products []ordering.Product) (ordering.Batch, error) {
		return s.engine.Swap(products, id1, id2)
	})
}

// Remove deletes id and closes the gap it leaves.
func (s *Service) Remove(ctx context.Context, id string) (Result, error) {
	return s.mutate(ctx, ordering.OpRemove, func(products []ordering.Product) (ordering.Batch, error) {
		return s.engine.Remove(products, id)
	})
}

// Insert adds p to sector code at target (ordering.Append for the end).
func (s *Service) Insert(ctx context.Context, p ordering.Product, code string, target int) (Result, error) {
	return s.mutate(ctx, ordering.OpInsert, func(products []ordering.Product) (ordering.Batch, error) {
		return s.engine.Insert(products, p, code, target)
	})
}

// Repair compacts every sector and moves out-of-catalog orders into the first sector.
func (s *Service) Repair(ctx context.Context) (Result, error) {
	return s.mutate(ctx, ordering.OpRepair, s.engine.Repair)
}

// Products returns every product, or only those of sector code in sequence
// order when code is non-empty.
func (s *Service) Products(ctx context.Context, code string) ([]ordering.Product, error) {
	products, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return products, nil
	}
	normalized, err := s.engine.Codec().CheckSector(code)
	if err != nil {
		return nil, err
	}
	return s.engine.Index().ProductsInSector(products, normalized), nil
}

// Audit reports every invariant violation in the stored collection.
func (s *Service) Audit(ctx context.Context) ([]ordering.Finding, error) {
	products, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.Audit(products), nil
}

// History returns the most recent committed batches, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]store.BatchRecord, error) {
	return s.store.ListBatches(ctx, limit)
}

type computeFunc func([]ordering.Product) (ordering.Batch, error)

// mutate recomputes and recommits while commits conflict, up to maxAttempts.
// Engine errors are returned immediately; only concurrent-write conflicts retry.
func (s *Service) mutate(ctx context.Context, op ordering.Operation, compute computeFunc) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		res, err := s.attempt(ctx, compute)
		if err == nil {
			s.recordSuccess(op, res)
			return res, nil
		}

		if !errors.Is(err, store.ErrRevisionConflict) && !errors.Is(err, errSectorsMoved) {
			s.recordFailure(op, err)
			return Result{}, err
		}

		s.metrics.RevisionConflicts.WithLabelValues(string(op)).Inc()
		s.logger.Debug("concurrent write, recomputing batch",
			"operation", string(op),
			"attempt", attempt,
			"error", err,
		)
		lastErr = err
	}

	s.metrics.Operations.WithLabelValues(string(op), ResultError).Inc()
	s.logger.Warn("giving up after repeated conflicts",
		"operation", string(op),
		"attempts", s.maxAttempts,
	)
	return Result{}, fmt.Errorf("%s: %d attempts: %w", op, s.maxAttempts, lastErr)
}

func (s *Service) attempt(ctx context.Context, compute computeFunc) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// A first, unlocked computation tells us which sectors to lock.
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return Result{}, err
	}
	planned, err := compute(snap.Products)
	if err != nil {
		return Result{}, err
	}
	if planned.Empty() {
		return Result{Batch: planned}, nil
	}

	unlock := s.locks.lock(planned.Sectors)
	defer unlock()

	snap, err = s.store.Snapshot(ctx)
	if err != nil {
		return Result{}, err
	}
	batch, err := compute(snap.Products)
	if err != nil {
		return Result{}, err
	}
	if batch.Empty() {
		return Result{Batch: batch}, nil
	}
	if !subset(batch.Sectors, planned.Sectors) {
		return Result{}, errSectorsMoved
	}

	batchID := s.ids.Generate()
	commitCtx, cancel := context.WithTimeout(ctx, s.commitTimeout)
	defer cancel()

	seq, err := s.store.CommitBatch(commitCtx, batchID, batch, snap.Revisions.For(batch.Sectors))
	if err != nil {
		return Result{}, err
	}
	return Result{BatchID: batchID, Seq: seq, Batch: batch}, nil
}

func (s *Service) recordSuccess(op ordering.Operation, res Result) {
	if !res.Committed() {
		s.metrics.Operations.WithLabelValues(string(op), ResultNoop).Inc()
		s.logger.Debug("no-op mutation", "operation", string(op))
		return
	}

	changed := len(res.Batch.Updates) + len(res.Batch.Created) + len(res.Batch.Deleted)
	s.metrics.Operations.WithLabelValues(string(op), ResultCommitted).Inc()
	s.metrics.BatchSize.WithLabelValues(string(op)).Observe(float64(changed))
	s.logger.Info("batch committed",
		"operation", string(op),
		"batch", res.BatchID,
		"seq", res.Seq,
		"sectors", res.Batch.Sectors,
		"changed", changed,
	)
}

func (s *Service) recordFailure(op ordering.Operation, err error) {
	var oe *ordering.Error
	if !errors.As(err, &oe) {
		s.metrics.Operations.WithLabelValues(string(op), ResultError).Inc()
		s.logger.Error("mutation failed", "operation", string(op), "error", err)
		return
	}

	s.metrics.Operations.WithLabelValues(string(op), ResultRejected).Inc()
	if oe.Code == ordering.ErrCodeInconsistentState {
		s.metrics.InvariantViolations.WithLabelValues(string(op)).Inc()
		s.logger.Error("mutation rejected: inconsistent state",
			"operation", string(op),
			"product", oe.ProductID,
			"sector", oe.Sector,
			"error", err,
		)
		return
	}
	s.logger.Debug("mutation rejected",
		"operation", string(op),
		"code", string(oe.Code),
		"error", err,
	)
}

func subset(sub, of []string) bool {
	for _, x := range sub {
		if !slices.Contains(of, x) {
			return false
		}
	}
	return true
}
