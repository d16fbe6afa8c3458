package testutil

import (
	"fmt"
	"sync"
)

// CountingGenerator generates sequential batch IDs: "<prefix>-0001", "<prefix>-0002", ...
//
// The same scenario run twice with a fresh CountingGenerator produces the same
// IDs, which keeps traces reproducible. Unlike reorder.FixedGenerator it never
// runs out.
//
// Thread-safety: CountingGenerator is safe for concurrent use via internal mutex.
type CountingGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewCountingGenerator creates a generator. If prefix is empty, "batch" is used.
func NewCountingGenerator(prefix string) *CountingGenerator {
	if prefix == "" {
		prefix = "batch"
	}
	return &CountingGenerator{prefix: prefix}
}

// Generate returns the next id.
//
// Implements reorder.IDGenerator.
func (g *CountingGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *CountingGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
