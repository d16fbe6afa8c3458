package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/bakeorder/internal/ordering"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s: %s", event.Step, event.Op, event.Product, event.Outcome)
			if event.Error != "" {
				fmt.Fprintf(&buf, " (%s)", event.Error)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// AssertionContext gives state assertions access to the final collection.
type AssertionContext struct {
	Engine   *ordering.Engine
	Products []ordering.Product
}

// assertTraceCount checks that committed batches of the operation occur
// exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Outcome == OutcomeCommitted && event.Op == assertion.Op {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d committed %s", assertion.Count, assertion.Op),
			Actual:   fmt.Sprintf("%d committed", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks that committed operations appear in the given order.
// Operations don't need to be consecutive (intervening steps are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next == len(assertion.Ops) {
			break
		}
		if event.Outcome == OutcomeCommitted && event.Op == assertion.Ops[next] {
			next++
		}
	}

	if next < len(assertion.Ops) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("committed operations in order: %v", assertion.Ops),
			Actual:   fmt.Sprintf("missing %s after the first %d", assertion.Ops[next], next),
			Trace:    trace,
		}
	}
	return nil
}

// assertProductOrder checks a product's final five-digit order.
func assertProductOrder(actx *AssertionContext, assertion Assertion) error {
	for _, p := range actx.Products {
		if p.ID != assertion.Product {
			continue
		}
		got, err := actx.Engine.Codec().Format(p.Order)
		if err != nil {
			got = fmt.Sprintf("%d (%v)", p.Order, err)
		}
		if got != assertion.Order {
			return &AssertionError{
				Type:     AssertProductOrder,
				Expected: fmt.Sprintf("%s at %s", assertion.Product, assertion.Order),
				Actual:   fmt.Sprintf("%s at %s", assertion.Product, got),
			}
		}
		return nil
	}

	return &AssertionError{
		Type:     AssertProductOrder,
		Expected: fmt.Sprintf("%s at %s", assertion.Product, assertion.Order),
		Actual:   "product not in final state",
	}
}

// assertAuditClean checks that the final collection passes a full audit.
func assertAuditClean(actx *AssertionContext) error {
	findings := actx.Engine.Audit(actx.Products)
	if len(findings) == 0 {
		return nil
	}

	msgs := make([]string, len(findings))
	for i, f := range findings {
		msgs[i] = fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return &AssertionError{
		Type:     AssertAuditClean,
		Expected: "no findings",
		Actual:   strings.Join(msgs, "; "),
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides the final collection for state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertProductOrder, AssertAuditClean:
			if actx == nil || actx.Engine == nil {
				err = fmt.Errorf("assertion[%d]: %s requires final state", i, assertion.Type)
			} else if assertion.Type == AssertProductOrder {
				err = assertProductOrder(actx, assertion)
			} else {
				err = assertAuditClean(actx)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
