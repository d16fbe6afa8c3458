package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/bakeorder/internal/ordering"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedTestStore creates a store holding a, b, c in sector GRL and d, e in GFR.
func seedTestStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	products := []ordering.Product{
		{ID: "a", Name: "Harina", Order: 1001},
		{ID: "b", Name: "Azúcar", Order: 1002},
		{ID: "c", Name: "Sal", Order: 1003},
		{ID: "d", Name: "Gofre", Order: 2001},
		{ID: "e", Name: "Sirope", Order: 2002},
	}
	if err := s.Seed(context.Background(), products, []string{"GRL", "GFR"}); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}
	return s
}

func ordersByID(products []ordering.Product) map[string]int {
	out := make(map[string]int, len(products))
	for _, p := range products {
		out[p.ID] = p.Order
	}
	return out
}
