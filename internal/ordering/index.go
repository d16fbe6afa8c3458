package ordering

import (
	"slices"

	"github.com/roach88/bakeorder/internal/catalog"
)

// Index groups products by sector and orders them by sequence.
type Index struct {
	codec *Codec
}

// NewIndex creates an Index that decodes orders with codec.
func NewIndex(codec *Codec) *Index {
	return &Index{codec: codec}
}

// ProductsInSector returns the products of sector code, ascending by sequence.
// The sort is stable so transient duplicate sequences keep their input order.
func (ix *Index) ProductsInSector(products []Product, code string) []Product {
	code = catalog.NormalizeCode(code)
	var out []Product
	for _, p := range products {
		if ix.codec.DecodeSector(p.Order) == code {
			out = append(out, p)
		}
	}
	ix.sortBySequence(out)
	return out
}

// AdjacentProducts returns the neighbours of id inside its sector.
// prev is nil at the first position and next is nil at the last.
func (ix *Index) AdjacentProducts(products []Product, id string) (prev, next *Product, err error) {
	p, ok := findProduct(products, id)
	if !ok {
		return nil, nil, notFound(id)
	}
	list := ix.ProductsInSector(products, ix.codec.DecodeSector(p.Order))
	i := positionOf(list, id)
	if i > 0 {
		v := list[i-1]
		prev = &v
	}
	if i < len(list)-1 {
		v := list[i+1]
		next = &v
	}
	return prev, next, nil
}

// GroupBySector returns every populated sector's ordered product list.
func (ix *Index) GroupBySector(products []Product) map[string][]Product {
	groups := make(map[string][]Product)
	for _, p := range products {
		code := ix.codec.DecodeSector(p.Order)
		groups[code] = append(groups[code], p)
	}
	for _, list := range groups {
		ix.sortBySequence(list)
	}
	return groups
}

func (ix *Index) sortBySequence(list []Product) {
	slices.SortStableFunc(list, func(a, b Product) int {
		return ix.codec.DecodeSequence(a.Order) - ix.codec.DecodeSequence(b.Order)
	})
}

// positionOf returns the 0-based index of id in list, or -1.
func positionOf(list []Product, id string) int {
	return slices.IndexFunc(list, func(p Product) bool { return p.ID == id })
}
