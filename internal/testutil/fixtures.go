package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/bakeorder/internal/catalog"
	"github.com/roach88/bakeorder/internal/ordering"
	"github.com/roach88/bakeorder/internal/store"
)

// Placement lists the products of one sector in sequence order.
type Placement struct {
	Sector string
	IDs    []string
}

// BuildProducts encodes dense sequences for every placement and returns the
// products together with the sectors they populate. Product names equal their IDs.
func BuildProducts(cat *catalog.Catalog, placements ...Placement) ([]ordering.Product, []string, error) {
	codec := ordering.NewCodec(cat)

	var products []ordering.Product
	var sectors []string
	for _, pl := range placements {
		code, err := codec.CheckSector(pl.Sector)
		if err != nil {
			return nil, nil, err
		}
		sectors = append(sectors, code)
		for i, id := range pl.IDs {
			order, err := codec.Encode(code, i+1)
			if err != nil {
				return nil, nil, err
			}
			products = append(products, ordering.Product{ID: id, Name: id, Order: order})
		}
	}
	return products, sectors, nil
}

// OpenStore opens a fresh store in t.TempDir() seeded with placements.
func OpenStore(t testing.TB, cat *catalog.Catalog, placements ...Placement) *store.Store {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "bakeorder.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	products, sectors, err := BuildProducts(cat, placements...)
	if err != nil {
		t.Fatalf("build products: %v", err)
	}
	if len(products) > 0 {
		if err := s.Seed(context.Background(), products, sectors); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	return s
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
