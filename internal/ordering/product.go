package ordering

import (
	"fmt"
	"slices"
	"strings"
)

// Product is the subset of a bakery product that ordering cares about.
type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Order int    `json:"order"`
}

// Update assigns a new packed order to an existing product.
type Update struct {
	ProductID string `json:"product_id"`
	Order     int    `json:"order"`
}

// Operation names a mutation intent.
type Operation string

const (
	OpMoveAdjacent   Operation = "move_adjacent"
	OpMoveToPosition Operation = "move_to_position"
	OpChangeSector   Operation = "change_sector"
	OpSwap           Operation = "swap"
	OpRemove         Operation = "remove"
	OpInsert         Operation = "insert"
	OpRepair         Operation = "repair"
)

// Direction selects the neighbour for MoveAdjacent.
type Direction int

const (
	Prev Direction = iota
	Next
)

func (d Direction) String() string {
	if d == Prev {
		return "prev"
	}
	return "next"
}

// ParseDirection accepts prev/up and next/down.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prev", "up":
		return Prev, nil
	case "next", "down":
		return Next, nil
	}
	return Prev, fmt.Errorf("invalid direction %q: want prev|up|next|down", s)
}

// Append as a target sequence means "after the last product of the sector".
const Append = 0

// Batch is the complete set of changes produced by one mutation.
// All of it must be committed together or not at all.
type Batch struct {
	Operation Operation `json:"operation"`

	// Sectors lists every touched sector in catalog order.
	Sectors []string `json:"sectors"`

	// Updates holds existing products whose order changed, ascending by new order.
	Updates []Update `json:"updates"`

	// Created holds products inserted by this batch, with their assigned order.
	Created []Product `json:"created,omitempty"`

	// Deleted holds ids of products removed by this batch.
	Deleted []string `json:"deleted,omitempty"`
}

// Empty reports whether the batch changes nothing.
func (b Batch) Empty() bool {
	return len(b.Updates) == 0 && len(b.Created) == 0 && len(b.Deleted) == 0
}

// Orders returns productID -> new order for every updated or created product.
func (b Batch) Orders() map[string]int {
	out := make(map[string]int, len(b.Updates)+len(b.Created))
	for _, u := range b.Updates {
		out[u.ProductID] = u.Order
	}
	for _, p := range b.Created {
		out[p.ID] = p.Order
	}
	return out
}

// Apply returns a copy of products with the batch applied.
// Created products are appended, deleted ones dropped.
func (b Batch) Apply(products []Product) []Product {
	orders := b.Orders()
	out := make([]Product, 0, len(products)+len(b.Created))
	for _, p := range products {
		if slices.Contains(b.Deleted, p.ID) {
			continue
		}
		if o, ok := orders[p.ID]; ok {
			p.Order = o
		}
		out = append(out, p)
	}
	return append(out, b.Created...)
}

func findProduct(products []Product, id string) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
