package reorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bakeorder/internal/catalog"
	"github.com/roach88/bakeorder/internal/ordering"
	"github.com/roach88/bakeorder/internal/store"
	"github.com/roach88/bakeorder/internal/testutil"
)

type fixture struct {
	svc     *Service
	store   *store.Store
	metrics *Metrics
}

// newFixture seeds GRL with a, b, c and GFR with d, e.
func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	cat := catalog.Default()
	st := testutil.OpenStore(t, cat,
		testutil.Placement{Sector: "GRL", IDs: []string{"a", "b", "c"}},
		testutil.Placement{Sector: "GFR", IDs: []string{"d", "e"}},
	)
	m := NewMetrics(prometheus.NewRegistry())
	eng := ordering.New(cat, ordering.WithLogger(testutil.DiscardLogger()))

	base := []Option{
		WithIDGenerator(testutil.NewCountingGenerator("batch")),
		WithLogger(testutil.DiscardLogger()),
		WithMetrics(m),
	}
	svc := New(st, eng, append(base, opts...)...)
	return fixture{svc: svc, store: st, metrics: m}
}

func (f fixture) sector(t *testing.T, code string) []string {
	t.Helper()
	products, err := f.svc.Products(context.Background(), code)
	require.NoError(t, err)
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids
}

func TestService_MoveAdjacentCommits(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.MoveAdjacent(context.Background(), "b", ordering.Prev)
	require.NoError(t, err)

	assert.True(t, res.Committed())
	assert.Equal(t, "batch-0001", res.BatchID)
	assert.Equal(t, []string{"GRL"}, res.Batch.Sectors)
	assert.Equal(t, []string{"b", "a", "c"}, f.sector(t, "GRL"))

	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.Operations.WithLabelValues("move_adjacent", ResultCommitted)))
}

func TestService_BoundaryMoveIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.MoveAdjacent(ctx, "a", ordering.Prev)
	require.NoError(t, err)
	assert.False(t, res.Committed())
	assert.True(t, res.Batch.Empty())

	history, err := f.svc.History(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.Operations.WithLabelValues("move_adjacent", ResultNoop)))
}

func TestService_CrossSectorSwapRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Swap(context.Background(), "a", "d")
	require.Error(t, err)
	assert.True(t, ordering.IsCrossSectorSwap(err))

	assert.Equal(t, []string{"a", "b", "c"}, f.sector(t, "GRL"))
	assert.Equal(t, []string{"d", "e"}, f.sector(t, "GFR"))
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.Operations.WithLabelValues("swap", ResultRejected)))
}

func TestService_ChangeSectorAcrossSectors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before, err := f.store.Revisions(ctx)
	require.NoError(t, err)

	res, err := f.svc.ChangeSector(ctx, "a", "GFR", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"GRL", "GFR"}, res.Batch.Sectors)

	assert.Equal(t, []string{"b", "c"}, f.sector(t, "GRL"))
	assert.Equal(t, []string{"a", "d", "e"}, f.sector(t, "GFR"))

	after, err := f.store.Revisions(ctx)
	require.NoError(t, err)
	assert.Equal(t, before["GRL"]+1, after["GRL"])
	assert.Equal(t, before["GFR"]+1, after["GFR"])
}

func TestService_InsertAndRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Insert(ctx, ordering.Product{ID: "n", Name: "Nata"}, "GRL", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "n", "b", "c"}, f.sector(t, "GRL"))

	_, err = f.svc.Remove(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"n", "b", "c"}, f.sector(t, "GRL"))

	products, err := f.svc.Products(ctx, "GRL")
	require.NoError(t, err)
	assert.Equal(t, 1001, products[0].Order)
	assert.Equal(t, "Nata", products[0].Name)

	_, err = f.svc.Insert(ctx, ordering.Product{ID: "b"}, "GRL", ordering.Append)
	assert.Equal(t, ordering.ErrCodeDuplicateProduct, ordering.CodeOf(err))
}

func TestService_RepairCompactsGaps(t *testing.T) {
	cat := catalog.Default()
	st := testutil.OpenStore(t, cat)
	require.NoError(t, st.Seed(context.Background(), []ordering.Product{
		{ID: "a", Order: 1002},
		{ID: "b", Order: 1005},
		{ID: "x", Order: 42001},
	}, []string{"GRL"}))
	svc := New(st, ordering.New(cat, ordering.WithLogger(testutil.DiscardLogger())),
		WithLogger(testutil.DiscardLogger()))

	findings, err := svc.Audit(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, findings)

	res, err := svc.Repair(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Committed())

	findings, err = svc.Audit(context.Background())
	require.NoError(t, err)
	assert.Empty(t, findings)

	products, err := svc.Products(context.Background(), "GRL")
	require.NoError(t, err)
	assert.Len(t, products, 3)
}

func TestService_InvariantViolationCounted(t *testing.T) {
	cat := catalog.Default()
	st := testutil.OpenStore(t, cat)
	require.NoError(t, st.Seed(context.Background(), []ordering.Product{
		{ID: "a", Order: 1001},
		{ID: "b", Order: 1003},
	}, []string{"GRL"}))
	m := NewMetrics(prometheus.NewRegistry())
	var logs bytes.Buffer
	svc := New(st, ordering.New(cat, ordering.WithLogger(testutil.DiscardLogger())),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))), WithMetrics(m))

	_, err := svc.MoveAdjacent(context.Background(), "a", ordering.Next)
	require.Error(t, err)
	assert.True(t, ordering.IsInconsistentState(err))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.InvariantViolations.WithLabelValues("move_adjacent")))

	assert.Contains(t, logs.String(), "level=ERROR")
	assert.Contains(t, logs.String(), `msg="mutation rejected: inconsistent state"`)
	assert.Contains(t, logs.String(), "operation=move_adjacent")
}

func TestService_ProductsUnknownSector(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Products(context.Background(), "NOPE")
	assert.True(t, ordering.IsInvalidSector(err))
}

// interferingGenerator commits a swap of the first two GRL products through the
// store directly before handing out an id, so the service's own commit always
// races a concurrent writer. It interferes on the first `times` calls only.
type interferingGenerator struct {
	t     *testing.T
	store *store.Store
	times int
	calls int
}

func (g *interferingGenerator) Generate() string {
	g.calls++
	if g.calls <= g.times {
		ctx := context.Background()
		products, err := g.store.FetchAll(ctx)
		require.NoError(g.t, err)
		var first, second string
		for _, p := range products {
			switch p.Order {
			case 1001:
				first = p.ID
			case 1002:
				second = p.ID
			}
		}
		_, err = g.store.CommitBatch(ctx, fmt.Sprintf("external-%d", g.calls), ordering.Batch{
			Operation: ordering.OpSwap,
			Sectors:   []string{"GRL"},
			Updates: []ordering.Update{
				{ProductID: second, Order: 1001},
				{ProductID: first, Order: 1002},
			},
		}, nil)
		require.NoError(g.t, err)
	}
	return fmt.Sprintf("batch-%d", g.calls)
}

func TestService_RetriesRevisionConflict(t *testing.T) {
	f := newFixture(t)
	f.svc.ids = &interferingGenerator{t: t, store: f.store, times: 1}

	res, err := f.svc.MoveToPosition(context.Background(), "c", 1)
	require.NoError(t, err)
	assert.Equal(t, "batch-2", res.BatchID)

	// The external swap (b before a) landed first; c still went to the front.
	assert.Equal(t, []string{"c", "b", "a"}, f.sector(t, "GRL"))
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.RevisionConflicts.WithLabelValues("move_to_position")))
}

func TestService_GivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t, WithMaxAttempts(2))
	f.svc.ids = &interferingGenerator{t: t, store: f.store, times: 100}

	_, err := f.svc.MoveToPosition(context.Background(), "c", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrRevisionConflict))
	assert.Equal(t, 2.0, promtest.ToFloat64(f.metrics.RevisionConflicts.WithLabelValues("move_to_position")))
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.Operations.WithLabelValues("move_to_position", ResultError)))
}

func TestService_ConcurrentMovesKeepSectorDense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.svc.MoveAdjacent(ctx, "a", ordering.Next)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := f.svc.ChangeSector(ctx, "e", "GRL", ordering.Append)
			if err == nil {
				_, err = f.svc.ChangeSector(ctx, "e", "GFR", ordering.Append)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	findings, err := f.svc.Audit(ctx)
	require.NoError(t, err)
	assert.Empty(t, findings)
	assert.Len(t, append(f.sector(t, "GRL"), f.sector(t, "GFR")...), 5)
}

func TestService_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Swap(ctx, "a", "b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestService_Watch(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan []ordering.Product, 8)
	done := make(chan error, 1)
	go func() {
		done <- f.svc.Watch(ctx, func(products []ordering.Product) {
			updates <- products
		})
	}()

	select {
	case initial := <-updates:
		assert.Len(t, initial, 5)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial delivery")
	}

	_, err := f.svc.Remove(context.Background(), "e")
	require.NoError(t, err)

	select {
	case after := <-updates:
		assert.Len(t, after, 4)
	case <-time.After(5 * time.Second):
		t.Fatal("no delivery after commit")
	}

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.Operations.WithLabelValues("swap", ResultCommitted).Inc()
	m.BatchSize.WithLabelValues("swap").Observe(2)
	m.InvariantViolations.WithLabelValues("swap").Inc()
	m.RevisionConflicts.WithLabelValues("swap").Inc()

	n, err := promtest.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	assert.Panics(t, func() { NewMetrics(reg) }, "double registration must panic")
}
