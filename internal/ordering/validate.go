package ordering

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/bakeorder/internal/catalog"
)

// Validator checks order values and sector state.
type Validator struct {
	codec *Codec
	index *Index
}

// NewValidator creates a Validator.
func NewValidator(codec *Codec, index *Index) *Validator {
	return &Validator{codec: codec, index: index}
}

// ValidateValue checks that order addresses a catalog sector and a sequence in [1, 999].
func (v *Validator) ValidateValue(order int) error {
	code, err := v.codec.DecodeSectorStrict(order)
	if err != nil {
		return err
	}
	if seq := v.codec.DecodeSequence(order); seq < MinSequence {
		e := outOfRange("sequence", seq, MinSequence, MaxSequence)
		e.Sector = code
		return e
	}
	return nil
}

// ValidateSectorConsistency reports whether sector code holds exactly the sequences 1..n.
func (v *Validator) ValidateSectorConsistency(products []Product, code string) bool {
	return v.CheckSectorConsistency(products, code) == nil
}

// CheckSectorConsistency is ValidateSectorConsistency with a descriptive error
// listing duplicated and missing sequences.
func (v *Validator) CheckSectorConsistency(products []Product, code string) error {
	code = catalog.NormalizeCode(code)
	list := v.index.ProductsInSector(products, code)

	counts := make(map[int]int, len(list))
	for _, p := range list {
		counts[v.codec.DecodeSequence(p.Order)]++
	}

	var duplicates, missing, stray []int
	for seq, n := range counts {
		if n > 1 {
			duplicates = append(duplicates, seq)
		}
		if seq < 1 || seq > len(list) {
			stray = append(stray, seq)
		}
	}
	for seq := 1; seq <= len(list); seq++ {
		if counts[seq] == 0 {
			missing = append(missing, seq)
		}
	}
	if len(duplicates) == 0 && len(missing) == 0 && len(stray) == 0 {
		return nil
	}

	slices.Sort(duplicates)
	slices.Sort(stray)
	details := map[string]string{"count": strconv.Itoa(len(list))}
	var parts []string
	if len(duplicates) > 0 {
		details["duplicates"] = joinInts(duplicates)
		parts = append(parts, "duplicate sequences "+details["duplicates"])
	}
	if len(missing) > 0 {
		details["missing"] = joinInts(missing)
		parts = append(parts, "missing sequences "+details["missing"])
	}
	if len(stray) > 0 {
		details["stray"] = joinInts(stray)
		parts = append(parts, "sequences beyond count "+details["stray"])
	}
	return &Error{
		Code:    ErrCodeInconsistentState,
		Message: "sector is not dense: " + strings.Join(parts, "; "),
		Sector:  code,
		Details: details,
	}
}

// ValidateUniqueness reports whether every product has a distinct order.
func (v *Validator) ValidateUniqueness(products []Product) bool {
	return v.CheckUniqueness(products) == nil
}

// CheckUniqueness returns an error naming the first pair of products sharing an order.
func (v *Validator) CheckUniqueness(products []Product) error {
	seen := make(map[int]string, len(products))
	for _, p := range products {
		if other, dup := seen[p.Order]; dup {
			return &Error{
				Code:      ErrCodeInconsistentState,
				Message:   fmt.Sprintf("order %d shared with product %s", p.Order, other),
				ProductID: p.ID,
				Details: map[string]string{
					"order":   strconv.Itoa(p.Order),
					"product": other,
				},
			}
		}
		seen[p.Order] = p.ID
	}
	return nil
}

// FindingKind classifies audit findings.
type FindingKind string

const (
	FindingInvalidValue     FindingKind = "invalid_value"
	FindingSectorNotDense   FindingKind = "sector_not_dense"
	FindingDuplicateOrder   FindingKind = "duplicate_order"
	FindingDuplicateProduct FindingKind = "duplicate_product"
)

// Finding is one integrity problem reported by Audit.
type Finding struct {
	Kind      FindingKind `json:"kind"`
	ProductID string      `json:"product_id,omitempty"`
	Sector    string      `json:"sector,omitempty"`
	Order     int         `json:"order,omitempty"`
	Message   string      `json:"message"`
}

// Audit reports every integrity problem in products. An empty result means the
// collection satisfies all ordering invariants.
func (v *Validator) Audit(products []Product) []Finding {
	var findings []Finding

	ids := make(map[string]bool, len(products))
	for _, p := range products {
		if ids[p.ID] {
			findings = append(findings, Finding{
				Kind:      FindingDuplicateProduct,
				ProductID: p.ID,
				Message:   "product id appears more than once",
			})
		}
		ids[p.ID] = true

		if err := v.ValidateValue(p.Order); err != nil {
			findings = append(findings, Finding{
				Kind:      FindingInvalidValue,
				ProductID: p.ID,
				Order:     p.Order,
				Message:   err.Error(),
			})
		}
	}

	seen := make(map[int]string, len(products))
	for _, p := range products {
		if other, dup := seen[p.Order]; dup {
			findings = append(findings, Finding{
				Kind:      FindingDuplicateOrder,
				ProductID: p.ID,
				Order:     p.Order,
				Message:   fmt.Sprintf("order shared with product %s", other),
			})
			continue
		}
		seen[p.Order] = p.ID
	}

	groups := v.index.GroupBySector(products)
	for _, code := range v.codec.Catalog().Codes() {
		if _, ok := groups[code]; !ok {
			continue
		}
		if err := v.CheckSectorConsistency(products, code); err != nil {
			findings = append(findings, Finding{
				Kind:    FindingSectorNotDense,
				Sector:  code,
				Message: err.Error(),
			})
		}
	}
	return findings
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, n := range vals {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
