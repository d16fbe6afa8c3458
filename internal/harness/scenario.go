package harness

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bakeorder/internal/catalog"
	"github.com/roach88/bakeorder/internal/ordering"
)

// Scenario defines a conformance test scenario: a starting product layout,
// a sequence of ordering operations, and the expected final layout.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog overrides the default bakery catalog when non-empty.
	Catalog []catalog.Sector `yaml:"catalog,omitempty"`

	// StrictSectors rejects out-of-catalog orders instead of treating them as
	// first-sector products.
	StrictSectors bool `yaml:"strict_sectors,omitempty"`

	// Products is the initial collection, seeded without validation.
	Products []SeedProduct `yaml:"products"`

	// Steps are executed in order through the reorder service.
	Steps []Step `yaml:"steps"`

	// Expect maps sector code to the product ids it must hold, in sequence
	// order, after the last step. Sectors not listed are not checked.
	Expect map[string][]string `yaml:"expect,omitempty"`

	// Assertions validate the trace and final state.
	// Supported types: trace_count, trace_order, product_order, audit_clean
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// SeedProduct places a product either by sector and sequence or by a raw order
// value. Raw orders may be deliberately invalid to exercise repair.
type SeedProduct struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name,omitempty"`
	Sector   string `yaml:"sector,omitempty"`
	Sequence int    `yaml:"sequence,omitempty"`
	Order    int    `yaml:"order,omitempty"`
}

// Step is one ordering operation.
type Step struct {
	// Op is the operation name, e.g. "move_adjacent" or "swap".
	Op string `yaml:"op"`

	// Product is the product the operation acts on.
	Product string `yaml:"product,omitempty"`

	// Name is the new product's name (insert only).
	Name string `yaml:"name,omitempty"`

	// Other is the second product of a swap.
	Other string `yaml:"other,omitempty"`

	// Direction is prev|up|next|down (move_adjacent only).
	Direction string `yaml:"direction,omitempty"`

	// Sector is the destination sector (change_sector, insert).
	Sector string `yaml:"sector,omitempty"`

	// Target is the 1-based destination position; 0 appends where allowed.
	Target int `yaml:"target,omitempty"`

	// ExpectError is the ordering error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_count": committed batches of Op occur exactly Count times
	// - "trace_order": committed operations appear in the order of Ops
	// - "product_order": Product ends with the five-digit order Order
	// - "audit_clean": the final collection has no integrity findings
	Type string `yaml:"type"`

	Op      string   `yaml:"op,omitempty"`
	Count   int      `yaml:"count,omitempty"`
	Ops     []string `yaml:"ops,omitempty"`
	Product string   `yaml:"product,omitempty"`
	Order   string   `yaml:"order,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceCount   = "trace_count"
	AssertTraceOrder   = "trace_order"
	AssertProductOrder = "product_order"
	AssertAuditClean   = "audit_clean"
)

// Step operation names accepted in scenarios.
var knownOps = []string{
	string(ordering.OpMoveAdjacent),
	string(ordering.OpMoveToPosition),
	string(ordering.OpChangeSector),
	string(ordering.OpSwap),
	string(ordering.OpRemove),
	string(ordering.OpInsert),
	string(ordering.OpRepair),
}

var knownErrorCodes = []ordering.ErrorCode{
	ordering.ErrCodeInvalidSector,
	ordering.ErrCodeOutOfRange,
	ordering.ErrCodeCrossSectorSwap,
	ordering.ErrCodeInconsistentState,
	ordering.ErrCodeNotFound,
	ordering.ErrCodeDuplicateProduct,
	ordering.ErrCodeInvalidProduct,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML from memory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "step:" vs "steps:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the scenario files at path: path itself if it is a
// file, or every *.yaml / *.yml below it if it is a directory, sorted.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("scenario path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".yaml", ".yml":
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", path, err)
	}
	slices.Sort(files)
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, p := range s.Products {
		if p.ID == "" {
			return fmt.Errorf("products[%d]: id is required", i)
		}
		placed := p.Sector != "" || p.Sequence != 0
		if placed == (p.Order != 0) {
			return fmt.Errorf("products[%d]: exactly one of sector+sequence or order is required", i)
		}
		if placed && (p.Sector == "" || p.Sequence == 0) {
			return fmt.Errorf("products[%d]: sector and sequence go together", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	if !slices.Contains(knownOps, st.Op) {
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}

	needs := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("steps[%d]: %s is required for %s", index, field, st.Op)
		}
		return nil
	}

	var err error
	switch ordering.Operation(st.Op) {
	case ordering.OpMoveAdjacent:
		if err = needs("product", st.Product); err == nil {
			if err = needs("direction", st.Direction); err == nil {
				if _, perr := ordering.ParseDirection(st.Direction); perr != nil {
					err = fmt.Errorf("steps[%d]: %w", index, perr)
				}
			}
		}
	case ordering.OpMoveToPosition, ordering.OpRemove:
		err = needs("product", st.Product)
	case ordering.OpChangeSector, ordering.OpInsert:
		if err = needs("product", st.Product); err == nil {
			err = needs("sector", st.Sector)
		}
	case ordering.OpSwap:
		if err = needs("product", st.Product); err == nil {
			err = needs("other", st.Other)
		}
	}
	if err != nil {
		return err
	}

	if st.ExpectError != "" && !slices.Contains(knownErrorCodes, ordering.ErrorCode(st.ExpectError)) {
		return fmt.Errorf("steps[%d]: unknown expect_error %q", index, st.ExpectError)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertProductOrder:
		if a.Product == "" || a.Order == "" {
			return fmt.Errorf("assertions[%d]: product and order are required for product_order", index)
		}
	case AssertAuditClean:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
