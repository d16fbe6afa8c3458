package ordering

import (
	"fmt"
	"strconv"

	"github.com/roach88/bakeorder/internal/catalog"
)

// Packing constants.
const (
	SectorFactor = 1000
	MinSequence  = 1
	MaxSequence  = 999
	MaxOrder     = catalog.MaxSectors*SectorFactor + MaxSequence
)

// Codec packs and unpacks order values against a fixed catalog.
type Codec struct {
	catalog *catalog.Catalog
}

// NewCodec creates a Codec bound to cat.
func NewCodec(cat *catalog.Catalog) *Codec {
	return &Codec{catalog: cat}
}

// Catalog returns the catalog the codec was built with.
func (c *Codec) Catalog() *catalog.Catalog {
	return c.catalog
}

// SectorIndexOf returns the raw sector digits of order, in range or not.
func (c *Codec) SectorIndexOf(order int) int {
	return order / SectorFactor
}

// InRange reports whether order's sector digits address a catalog entry.
func (c *Codec) InRange(order int) bool {
	_, ok := c.catalog.At(c.SectorIndexOf(order))
	return ok
}

// DecodeSector returns the sector code of order.
//
// An index outside the catalog falls back to the first sector. The fallback hides
// corrupted values, so callers that can report it should check InRange or use
// DecodeSectorStrict.
func (c *Codec) DecodeSector(order int) string {
	if s, ok := c.catalog.At(c.SectorIndexOf(order)); ok {
		return s.Code
	}
	return c.catalog.First().Code
}

// DecodeSectorStrict is DecodeSector without the fallback.
func (c *Codec) DecodeSectorStrict(order int) (string, error) {
	idx := c.SectorIndexOf(order)
	s, ok := c.catalog.At(idx)
	if !ok {
		return "", invalidSectorIndex(order, idx)
	}
	return s.Code, nil
}

// DecodeSequence returns the in-sector sequence of order.
func (c *Codec) DecodeSequence(order int) int {
	return order % SectorFactor
}

// CheckSector returns the normalised form of code, or INVALID_SECTOR when the
// catalog has no such sector.
func (c *Codec) CheckSector(code string) (string, error) {
	if !c.catalog.Contains(code) {
		return "", invalidSectorCode(code)
	}
	return catalog.NormalizeCode(code), nil
}

// Encode packs a sector code and sequence.
// Sequences outside [1, 999] are rejected rather than truncated.
func (c *Codec) Encode(code string, sequence int) (int, error) {
	pos, ok := c.catalog.Position(code)
	if !ok {
		return 0, invalidSectorCode(code)
	}
	if sequence < MinSequence || sequence > MaxSequence {
		e := outOfRange("sequence", sequence, MinSequence, MaxSequence)
		e.Sector = catalog.NormalizeCode(code)
		return 0, e
	}
	return pos*SectorFactor + sequence, nil
}

// Format renders order in the canonical five-digit text form.
func (c *Codec) Format(order int) (string, error) {
	if order < 0 || order > MaxOrder {
		return "", outOfRange("order", order, 0, MaxOrder)
	}
	return fmt.Sprintf("%02d%03d", order/SectorFactor, order%SectorFactor), nil
}

// Parse reads the canonical five-digit text form.
func (c *Codec) Parse(text string) (int, error) {
	if len(text) != 5 {
		return 0, fmt.Errorf("order %q: want 5 digits", text)
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("order %q: want 5 digits", text)
		}
	}
	return strconv.Atoi(text)
}
