package ordering

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/bakeorder/internal/catalog"
)

// testCatalog returns GRL(1), GFR(2), PAN(3).
func testCatalog() *catalog.Catalog {
	return catalog.MustNew([]catalog.Sector{
		{Code: "GRL", Name: "Granel"},
		{Code: "GFR", Name: "Gofrería"},
		{Code: "PAN", Name: "Panadería"},
	})
}

func newTestEngine(opts ...Option) *Engine {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(testCatalog(), opts...)
}

// sectorIDs returns the ids of sector code in sequence order.
func sectorIDs(e *Engine, products []Product, code string) []string {
	var ids []string
	for _, p := range e.Index().ProductsInSector(products, code) {
		ids = append(ids, p.ID)
	}
	return ids
}

func orderOf(t *testing.T, products []Product, id string) int {
	t.Helper()
	p, ok := findProduct(products, id)
	require.True(t, ok, "product %s not found", id)
	return p.Order
}

// sampleProducts: GRL a,b,c; GFR d,e; PAN empty.
func sampleProducts() []Product {
	return []Product{
		{ID: "a", Name: "Magdalenas", Order: 1001},
		{ID: "b", Name: "Rosquillas", Order: 1002},
		{ID: "c", Name: "Pastas", Order: 1003},
		{ID: "d", Name: "Gofre clásico", Order: 2001},
		{ID: "e", Name: "Gofre chocolate", Order: 2002},
	}
}
