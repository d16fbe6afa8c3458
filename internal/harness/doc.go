// Package harness provides a conformance testing framework for bakery product
// ordering.
//
// A scenario is a YAML file describing a starting product layout, a sequence of
// ordering operations, and what must hold afterwards. The harness runs the steps
// through the reorder service on a fresh in-memory store, so scenarios exercise
// the same code path as the CLI.
//
// # Scenario Format
//
//	name: move-up-within-sector
//	description: moving b up swaps it with a
//	products:
//	  - {id: a, name: Harina, sector: GRL, sequence: 1}
//	  - {id: b, name: Azúcar, sector: GRL, sequence: 2}
//	steps:
//	  - {op: move_adjacent, product: b, direction: up}
//	  - {op: swap, product: a, other: x, expect_error: PRODUCT_NOT_FOUND}
//	expect:
//	  GRL: [b, a]
//	assertions:
//	  - {type: audit_clean}
//
// Products are placed by sector and sequence, or by a raw five-digit order to
// model corrupted data. Steps name an operation and its arguments; a step with
// expect_error must fail with exactly that ordering error code.
//
// # Assertions
//
//   - trace_count: a committed operation occurs exactly N times
//   - trace_order: committed operations appear in a given order
//   - product_order: a product ends at a given five-digit order
//   - audit_clean: the final collection has no integrity findings
//
// # Deterministic Testing
//
// Batch IDs come from testutil.CountingGenerator and are left out of golden
// snapshots; the snapshot is canonical JSON of the trace and final layout, so
// identical runs produce byte-identical golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/move.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
