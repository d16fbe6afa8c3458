package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/bakeorder/internal/canon"
	"github.com/roach88/bakeorder/internal/ordering"
)

// TraceSnapshot captures the complete trace and final layout of a scenario run.
// Batch IDs are left out so the snapshot only changes when ordering does.
type TraceSnapshot struct {
	ScenarioName string              `json:"scenario_name"`
	Trace        []TraceEvent        `json:"trace"`
	State        map[string][]string `json:"state"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"step":    event.Step,
			"op":      event.Op,
			"outcome": event.Outcome,
		}
		if event.Product != "" {
			eventMap["product"] = event.Product
		}
		if event.Error != "" {
			eventMap["error"] = event.Error
		}
		if event.Outcome == OutcomeCommitted && event.Batch != nil {
			eventMap["batch"] = batchMap(*event.Batch)
		}
		traceList[i] = eventMap
	}

	state := make(map[string]any, len(s.State))
	for code, ids := range s.State {
		state[code] = ids
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"state":         state,
	}
}

func batchMap(b ordering.Batch) map[string]any {
	updates := make([]any, len(b.Updates))
	for i, u := range b.Updates {
		updates[i] = map[string]any{"product_id": u.ProductID, "order": u.Order}
	}
	m := map[string]any{
		"sectors": b.Sectors,
		"updates": updates,
	}
	if len(b.Created) > 0 {
		created := make([]any, len(b.Created))
		for i, p := range b.Created {
			created[i] = map[string]any{"id": p.ID, "name": p.Name, "order": p.Order}
		}
		m["created"] = created
	}
	if len(b.Deleted) > 0 {
		m["deleted"] = b.Deleted
	}
	return m
}

// Snapshot renders a result as canonical JSON, the golden file format.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		State:        result.State,
	}
	return canon.Marshal(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
