package reorder

import (
	"context"

	"github.com/roach88/bakeorder/internal/ordering"
	"github.com/roach88/bakeorder/internal/store"
)

// Watch calls fn with the full product list once immediately and again after
// every committed change, until ctx is done. Changes arriving while fn runs are
// coalesced into a single redelivery.
//
// Watch blocks; it returns ctx.Err() on cancellation or the first read error.
func (s *Service) Watch(ctx context.Context, fn func([]ordering.Product)) error {
	changed := make(chan struct{}, 1)
	unsubscribe := s.store.Subscribe(func(store.ChangeEvent) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	deliver := func() error {
		products, err := s.store.FetchAll(ctx)
		if err != nil {
			return err
		}
		fn(products)
		return nil
	}

	if err := deliver(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("watch stopping: context cancelled")
			return ctx.Err()
		case <-changed:
			if err := deliver(); err != nil {
				return err
			}
		}
	}
}
