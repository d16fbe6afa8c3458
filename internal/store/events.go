package store

// ChangeEvent describes one committed write.
type ChangeEvent struct {
	Seq       int64    `json:"seq"`
	BatchID   string   `json:"batch_id,omitempty"`
	Operation string   `json:"operation"`
	Sectors   []string `json:"sectors"`
}

// Subscribe registers fn to be called after every successful commit.
// Calls happen synchronously on the committing goroutine, after the
// transaction is durable; fn must not call back into the store's write path.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(ChangeEvent)) (unsubscribe func()) {
	id := s.nextID.Add(1)
	s.listeners.Store(id, fn)
	return func() { s.listeners.Delete(id) }
}

func (s *Store) notify(ev ChangeEvent) {
	s.listeners.Range(func(_ uint64, fn func(ChangeEvent)) bool {
		fn(ev)
		return true
	})
}
