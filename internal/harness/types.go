package harness

import (
	"github.com/roach88/bakeorder/internal/ordering"
)

// Step outcomes recorded in the trace.
const (
	OutcomeCommitted = "committed"
	OutcomeNoop      = "noop"
	OutcomeRejected  = "rejected"
)

// TraceEvent records what one scenario step did.
type TraceEvent struct {
	Step    int    `json:"step"`
	Op      string `json:"op"`
	Product string `json:"product,omitempty"`
	Outcome string `json:"outcome"`

	// Error is the ordering error code of a rejected step.
	Error string `json:"error,omitempty"`

	// Batch is the committed batch; nil for rejected steps.
	Batch *ordering.Batch `json:"batch,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step matched its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State maps each populated sector to its product ids in sequence order
	// after the last step.
	State map[string][]string `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string][]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
