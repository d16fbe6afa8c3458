package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/bakeorder/internal/ordering"
)

// Revisions maps sector code to its current revision. Absent sectors are at 0.
type Revisions map[string]int64

// Snapshot is a consistent read of products and sector revisions.
type Snapshot struct {
	Products  []ordering.Product
	Revisions Revisions
}

// For returns the revisions of the given sectors.
func (r Revisions) For(sectors []string) Revisions {
	out := make(Revisions, len(sectors))
	for _, s := range sectors {
		out[s] = r[s]
	}
	return out
}

// FetchAll returns every product ordered by order value, then id.
// Returns an empty slice (not nil) for an empty store.
func (s *Store) FetchAll(ctx context.Context) ([]ordering.Product, error) {
	products, err := fetchProducts(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("fetch all: %w", err)
	}
	return products, nil
}

// Snapshot reads products and revisions in one transaction.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		products, err := fetchProducts(ctx, tx)
		if err != nil {
			return err
		}
		revisions, err := fetchRevisions(ctx, tx)
		if err != nil {
			return err
		}
		snap = Snapshot{Products: products, Revisions: revisions}
		return nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	return snap, nil
}

// Revisions returns the current revision of every sector written so far.
func (s *Store) Revisions(ctx context.Context) (Revisions, error) {
	revisions, err := fetchRevisions(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("revisions: %w", err)
	}
	return revisions, nil
}

// BatchRecord is one committed batch from the log.
type BatchRecord struct {
	Seq       int64    `json:"seq"`
	ID        string   `json:"id"`
	Operation string   `json:"operation"`
	Sectors   []string `json:"sectors"`
	Payload   string   `json:"payload"`
}

// ListBatches returns the most recent committed batches, newest first.
// limit <= 0 returns all of them.
func (s *Store) ListBatches(ctx context.Context, limit int) ([]BatchRecord, error) {
	query := `
		SELECT seq, id, operation, sectors, payload
		FROM batches
		ORDER BY seq DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	records := []BatchRecord{}
	for rows.Next() {
		var rec BatchRecord
		var sectors string
		if err := rows.Scan(&rec.Seq, &rec.ID, &rec.Operation, &sectors, &rec.Payload); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		if err := json.Unmarshal([]byte(sectors), &rec.Sectors); err != nil {
			return nil, fmt.Errorf("decode sectors of batch %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return records, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func fetchProducts(ctx context.Context, q querier) ([]ordering.Product, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, order_value
		FROM products
		ORDER BY order_value ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []ordering.Product{}
	for rows.Next() {
		var p ordering.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Order); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func fetchRevisions(ctx context.Context, q querier) (Revisions, error) {
	rows, err := q.QueryContext(ctx, `SELECT sector, revision FROM sector_revisions`)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	revisions := Revisions{}
	for rows.Next() {
		var sector string
		var rev int64
		if err := rows.Scan(&sector, &rev); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revisions[sector] = rev
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return revisions, nil
}
