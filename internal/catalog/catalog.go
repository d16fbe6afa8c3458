package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxSectors is the largest catalog a packed order can address (two decimal digits).
const MaxSectors = 99

var codePattern = regexp.MustCompile(`^[A-Z0-9]{1,8}$`)

// Sector is a named category bucket.
type Sector struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// Catalog is an immutable, ordered list of sectors.
type Catalog struct {
	sectors  []Sector
	position map[string]int // code -> 1-based position
}

// New validates sectors and builds a Catalog.
// Codes are trimmed, NFC normalized and upper-cased before validation.
func New(sectors []Sector) (*Catalog, error) {
	if len(sectors) == 0 {
		return nil, fmt.Errorf("catalog: no sectors defined")
	}
	if len(sectors) > MaxSectors {
		return nil, fmt.Errorf("catalog: %d sectors exceeds the maximum of %d", len(sectors), MaxSectors)
	}

	c := &Catalog{
		sectors:  make([]Sector, 0, len(sectors)),
		position: make(map[string]int, len(sectors)),
	}
	for i, s := range sectors {
		code := NormalizeCode(s.Code)
		name := strings.TrimSpace(norm.NFC.String(s.Name))
		if code == "" {
			return nil, fmt.Errorf("catalog: sector %d: empty code", i+1)
		}
		if !codePattern.MatchString(code) {
			return nil, fmt.Errorf("catalog: sector %d: code %q must be 1-8 letters or digits", i+1, code)
		}
		if name == "" {
			return nil, fmt.Errorf("catalog: sector %q: empty name", code)
		}
		if prev, dup := c.position[code]; dup {
			return nil, fmt.Errorf("catalog: sector %q defined at positions %d and %d", code, prev, i+1)
		}
		c.sectors = append(c.sectors, Sector{Code: code, Name: name})
		c.position[code] = i + 1
	}
	return c, nil
}

// MustNew is New for static catalogs; it panics on error.
func MustNew(sectors []Sector) *Catalog {
	c, err := New(sectors)
	if err != nil {
		panic(err)
	}
	return c
}

// NormalizeCode maps user input to the canonical code form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(norm.NFC.String(code)))
}

// Len returns the number of sectors.
func (c *Catalog) Len() int {
	return len(c.sectors)
}

// Sectors returns a copy of the sectors in catalog order.
func (c *Catalog) Sectors() []Sector {
	out := make([]Sector, len(c.sectors))
	copy(out, c.sectors)
	return out
}

// Codes returns sector codes in catalog order.
func (c *Catalog) Codes() []string {
	out := make([]string, len(c.sectors))
	for i, s := range c.sectors {
		out[i] = s.Code
	}
	return out
}

// At returns the sector at a 1-based position.
func (c *Catalog) At(position int) (Sector, bool) {
	if position < 1 || position > len(c.sectors) {
		return Sector{}, false
	}
	return c.sectors[position-1], true
}

// First returns the sector at position 1.
func (c *Catalog) First() Sector {
	return c.sectors[0]
}

// Position returns the 1-based position of code.
// The code is normalized first, so "grl" and "GRL" resolve the same.
func (c *Catalog) Position(code string) (int, bool) {
	pos, ok := c.position[NormalizeCode(code)]
	return pos, ok
}

// Contains reports whether code names a sector.
func (c *Catalog) Contains(code string) bool {
	_, ok := c.Position(code)
	return ok
}

// Lookup returns the sector for code.
func (c *Catalog) Lookup(code string) (Sector, bool) {
	pos, ok := c.Position(code)
	if !ok {
		return Sector{}, false
	}
	return c.sectors[pos-1], true
}
