package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/bakeorder/internal/canon"
	"github.com/roach88/bakeorder/internal/ordering"
)

var (
	// ErrRevisionConflict is returned when a touched sector changed after the
	// caller's snapshot. The batch was computed from stale state and is discarded.
	ErrRevisionConflict = errors.New("sector revision conflict")

	// ErrProductNotFound is returned when a batch updates or deletes a missing product.
	ErrProductNotFound = errors.New("product not found")
)

// CommitBatch writes b in a single transaction and returns its log sequence.
//
// expected holds the revisions the caller read for b.Sectors; a nil map skips the
// check. On any error nothing is written. An empty batch writes nothing and
// returns seq 0.
//
// Updated rows are first parked at negative orders so that two products trading
// places never collide on UNIQUE(order_value) mid-transaction.
func (s *Store) CommitBatch(ctx context.Context, batchID string, b ordering.Batch, expected Revisions) (int64, error) {
	if b.Empty() {
		return 0, nil
	}

	payload, err := EncodeBatch(b)
	if err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	sectors, err := canon.Marshal(b.Sectors)
	if err != nil {
		return 0, fmt.Errorf("commit batch: encode sectors: %w", err)
	}

	var seq int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if expected != nil {
			if err := checkRevisions(ctx, tx, b.Sectors, expected); err != nil {
				return err
			}
		}

		for _, id := range b.Deleted {
			if err := execOne(ctx, tx, `DELETE FROM products WHERE id = ?`, id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
		}

		for _, u := range b.Updates {
			if err := execOne(ctx, tx, `UPDATE products SET order_value = ? WHERE id = ?`, -u.Order, u.ProductID); err != nil {
				return fmt.Errorf("park %s: %w", u.ProductID, err)
			}
		}
		for _, u := range b.Updates {
			if err := execOne(ctx, tx, `UPDATE products SET order_value = ? WHERE id = ?`, u.Order, u.ProductID); err != nil {
				return fmt.Errorf("update %s: %w", u.ProductID, err)
			}
		}

		for _, p := range b.Created {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO products (id, name, order_value)
				VALUES (?, ?, ?)
			`, p.ID, p.Name, p.Order); err != nil {
				return fmt.Errorf("insert %s: %w", p.ID, err)
			}
		}

		if err := bumpRevisions(ctx, tx, b.Sectors); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO batches (id, operation, sectors, payload)
			VALUES (?, ?, ?, ?)
		`, batchID, string(b.Operation), string(sectors), string(payload))
		if err != nil {
			return fmt.Errorf("append batch log: %w", err)
		}
		seq, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("append batch log: last insert id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("commit batch %s: %w", batchID, err)
	}

	s.notify(ChangeEvent{
		Seq:       seq,
		BatchID:   batchID,
		Operation: string(b.Operation),
		Sectors:   b.Sectors,
	})
	return seq, nil
}

// Seed inserts products as-is in one transaction and bumps the revisions of
// sectors. It performs no ordering validation; use it for imports and fixtures.
func (s *Store) Seed(ctx context.Context, products []ordering.Product, sectors []string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, p := range products {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO products (id, name, order_value)
				VALUES (?, ?, ?)
			`, p.ID, p.Name, p.Order); err != nil {
				return fmt.Errorf("insert %s: %w", p.ID, err)
			}
		}
		return bumpRevisions(ctx, tx, sectors)
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	s.notify(ChangeEvent{Operation: "seed", Sectors: sectors})
	return nil
}

// EncodeBatch renders b as canonical JSON, the form stored in the batch log.
func EncodeBatch(b ordering.Batch) ([]byte, error) {
	updates := make([]any, len(b.Updates))
	for i, u := range b.Updates {
		updates[i] = map[string]any{"product_id": u.ProductID, "order": u.Order}
	}
	created := make([]any, len(b.Created))
	for i, p := range b.Created {
		created[i] = map[string]any{"id": p.ID, "name": p.Name, "order": p.Order}
	}
	deleted := b.Deleted
	if deleted == nil {
		deleted = []string{}
	}
	sectors := b.Sectors
	if sectors == nil {
		sectors = []string{}
	}
	return canon.Marshal(map[string]any{
		"operation": string(b.Operation),
		"sectors":   sectors,
		"updates":   updates,
		"created":   created,
		"deleted":   deleted,
	})
}

func checkRevisions(ctx context.Context, tx *sql.Tx, sectors []string, expected Revisions) error {
	for _, sector := range sectors {
		var current int64
		err := tx.QueryRowContext(ctx,
			`SELECT revision FROM sector_revisions WHERE sector = ?`, sector,
		).Scan(&current)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read revision of %s: %w", sector, err)
		}
		if current != expected[sector] {
			return fmt.Errorf("%w: sector %s at revision %d, expected %d",
				ErrRevisionConflict, sector, current, expected[sector])
		}
	}
	return nil
}

func bumpRevisions(ctx context.Context, tx *sql.Tx, sectors []string) error {
	for _, sector := range sectors {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sector_revisions (sector, revision) VALUES (?, 1)
			ON CONFLICT(sector) DO UPDATE SET revision = revision + 1
		`, sector); err != nil {
			return fmt.Errorf("bump revision of %s: %w", sector, err)
		}
	}
	return nil
}

// execOne runs a statement that must affect exactly one row.
func execOne(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return ErrProductNotFound
	}
	return nil
}
