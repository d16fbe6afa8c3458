package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/bakeorder/internal/catalog"
	"github.com/roach88/bakeorder/internal/ordering"
	"github.com/roach88/bakeorder/internal/reorder"
	"github.com/roach88/bakeorder/internal/store"
	"github.com/roach88/bakeorder/internal/testutil"
)

// ErrInvalidStep marks a step whose arguments cannot be dispatched. Such a
// step is recorded as rejected with error InvalidStepCode.
var ErrInvalidStep = errors.New("invalid step")

// InvalidStepCode is the trace error recorded for ErrInvalidStep.
const InvalidStepCode = "INVALID_STEP"

// Harness executes scenario steps against a reorder service.
type Harness struct {
	service *reorder.Service
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with
// sequential batch IDs so repeated runs are identical.
//
// Execution flow:
//  1. Build the catalog (inline or default)
//  2. Seed the initial products
//  3. Execute steps, checking each against expect_error
//  4. Check the final layout against expect and the assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with engine and service logs sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	cat, err := scenarioCatalog(scenario)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := seed(ctx, st, cat, scenario.Products); err != nil {
		return nil, err
	}

	eng := ordering.New(cat,
		ordering.WithLogger(logger),
		ordering.WithStrictSectors(scenario.StrictSectors),
	)
	h := &Harness{
		service: reorder.New(st, eng,
			reorder.WithIDGenerator(testutil.NewCountingGenerator("batch")),
			reorder.WithLogger(logger),
		),
		logger: logger,
	}

	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	products, err := st.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	for code, list := range eng.Index().GroupBySector(products) {
		ids := make([]string, len(list))
		for i, p := range list {
			ids[i] = p.ID
		}
		result.State[code] = ids
	}

	for _, msg := range checkExpect(scenario.Expect, result.State) {
		result.AddError(msg)
	}

	actx := &AssertionContext{Engine: eng, Products: products}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// executeSteps runs every step. A step that fails unexpectedly, or succeeds
// when an error was expected, is recorded as a result error and execution
// continues; only infrastructure failures abort the run.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		ev := TraceEvent{Step: i + 1, Op: step.Op, Product: step.Product}

		res, err := h.apply(ctx, step)
		var oe *ordering.Error
		switch {
		case err == nil:
			b := res.Batch
			ev.Batch = &b
			ev.Outcome = OutcomeNoop
			if res.Committed() {
				ev.Outcome = OutcomeCommitted
			}
		case errors.As(err, &oe):
			ev.Outcome = OutcomeRejected
			ev.Error = string(oe.Code)
		case errors.Is(err, ErrInvalidStep):
			ev.Outcome = OutcomeRejected
			ev.Error = InvalidStepCode
		default:
			return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
		result.AddTrace(ev)

		switch {
		case step.ExpectError != "" && ev.Error != step.ExpectError:
			got := ev.Error
			if got == "" {
				got = "success"
			}
			result.AddError(fmt.Sprintf("step %d (%s %s): expected error %s, got %s",
				i+1, step.Op, step.Product, step.ExpectError, got))
		case step.ExpectError == "" && ev.Error != "":
			result.AddError(fmt.Sprintf("step %d (%s %s): unexpected error: %v",
				i+1, step.Op, step.Product, err))
		}

		h.logger.Info("scenario step completed",
			"step", i+1,
			"op", step.Op,
			"product", step.Product,
			"outcome", ev.Outcome,
		)
	}
	return nil
}

// apply dispatches one step to the service.
func (h *Harness) apply(ctx context.Context, step Step) (reorder.Result, error) {
	switch ordering.Operation(step.Op) {
	case ordering.OpMoveAdjacent:
		dir, err := ordering.ParseDirection(step.Direction)
		if err != nil {
			return reorder.Result{}, fmt.Errorf("%w: %v", ErrInvalidStep, err)
		}
		return h.service.MoveAdjacent(ctx, step.Product, dir)
	case ordering.OpMoveToPosition:
		return h.service.MoveToPosition(ctx, step.Product, step.Target)
	case ordering.OpChangeSector:
		return h.service.ChangeSector(ctx, step.Product, step.Sector, step.Target)
	case ordering.OpSwap:
		return h.service.Swap(ctx, step.Product, step.Other)
	case ordering.OpRemove:
		return h.service.Remove(ctx, step.Product)
	case ordering.OpInsert:
		p := ordering.Product{ID: step.Product, Name: step.Name}
		return h.service.Insert(ctx, p, step.Sector, step.Target)
	case ordering.OpRepair:
		return h.service.Repair(ctx)
	}
	return reorder.Result{}, fmt.Errorf("%w: unknown op %q", ErrInvalidStep, step.Op)
}

func scenarioCatalog(s *Scenario) (*catalog.Catalog, error) {
	if len(s.Catalog) == 0 {
		return catalog.Default(), nil
	}
	cat, err := catalog.New(s.Catalog)
	if err != nil {
		return nil, fmt.Errorf("scenario catalog: %w", err)
	}
	return cat, nil
}

// seed stores the initial products. Placed products are encoded against cat;
// raw orders are stored as given.
func seed(ctx context.Context, st *store.Store, cat *catalog.Catalog, products []SeedProduct) error {
	if len(products) == 0 {
		return nil
	}
	codec := ordering.NewCodec(cat)

	seeded := make([]ordering.Product, 0, len(products))
	var sectors []string
	for i, sp := range products {
		order := sp.Order
		if sp.Sector != "" {
			var err error
			order, err = codec.Encode(sp.Sector, sp.Sequence)
			if err != nil {
				return fmt.Errorf("products[%d] %s: %w", i, sp.ID, err)
			}
		}
		seeded = append(seeded, ordering.Product{ID: sp.ID, Name: sp.Name, Order: order})

		code := codec.DecodeSector(order)
		if !slices.Contains(sectors, code) {
			sectors = append(sectors, code)
		}
	}
	if err := st.Seed(ctx, seeded, sectors); err != nil {
		return fmt.Errorf("seed products: %w", err)
	}
	return nil
}

// checkExpect compares the expected sector layouts with the final state.
func checkExpect(expect map[string][]string, state map[string][]string) []string {
	codes := make([]string, 0, len(expect))
	for code := range expect {
		codes = append(codes, code)
	}
	slices.Sort(codes)

	var errs []string
	for _, code := range codes {
		want := expect[code]
		got := state[catalog.NormalizeCode(code)]
		if len(want) == 0 && len(got) == 0 {
			continue
		}
		if !slices.Equal(want, got) {
			errs = append(errs, fmt.Sprintf("sector %s: expected %v, got %v", code, want, got))
		}
	}
	return errs
}
