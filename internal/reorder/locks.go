package reorder

import (
	"slices"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// sectorLocks serializes in-process mutations per sector.
type sectorLocks struct {
	m *xsync.MapOf[string, *sync.Mutex]
}

func newSectorLocks() *sectorLocks {
	return &sectorLocks{m: xsync.NewMapOf[string, *sync.Mutex]()}
}

// lock acquires the mutex of every sector in sorted order and returns the
// function releasing them. Sorting keeps two multi-sector operations from
// deadlocking on each other.
func (l *sectorLocks) lock(sectors []string) (unlock func()) {
	codes := slices.Clone(sectors)
	slices.Sort(codes)
	codes = slices.Compact(codes)

	held := make([]*sync.Mutex, 0, len(codes))
	for _, code := range codes {
		mu, _ := l.m.LoadOrCompute(code, func() *sync.Mutex { return &sync.Mutex{} })
		mu.Lock()
		held = append(held, mu)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
