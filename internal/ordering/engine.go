package ordering

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/bakeorder/internal/catalog"
)

// Engine computes the order changes for one mutation at a time.
//
// Every operation takes the full current product list, never modifies it, and
// returns the Batch of all changed orders. Structural changes go through the
// Compactor; the result is checked by the Validator before it is returned.
type Engine struct {
	catalog   *catalog.Catalog
	codec     *Codec
	index     *Index
	compactor *Compactor
	validator *Validator
	logger    *slog.Logger

	// strict rejects products whose order addresses no catalog sector instead of
	// placing them in the first sector.
	strict bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for fallback warnings and invariant violations.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStrictSectors makes out-of-catalog orders an INVALID_SECTOR error.
func WithStrictSectors(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

// New creates an Engine for cat.
func New(cat *catalog.Catalog, opts ...Option) *Engine {
	codec := NewCodec(cat)
	index := NewIndex(codec)
	e := &Engine{
		catalog:   cat,
		codec:     codec,
		index:     index,
		compactor: NewCompactor(codec, index),
		validator: NewValidator(codec, index),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the sector catalog the engine orders against.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Codec returns the order codec shared by every engine component.
func (e *Engine) Codec() *Codec { return e.codec }

// Index returns the sector index used to read sector contents.
func (e *Engine) Index() *Index { return e.index }

// Compactor returns the compactor used for renumbering and repair.
func (e *Engine) Compactor() *Compactor { return e.compactor }

// Validator returns the validator behind Audit and the batch checks.
func (e *Engine) Validator() *Validator { return e.validator }

// MoveAdjacent swaps id with its neighbour in direction dir.
// At the sector boundary it returns an empty batch.
func (e *Engine) MoveAdjacent(products []Product, id string, dir Direction) (Batch, error) {
	t, err := e.locate(products, id)
	if err != nil {
		return Batch{}, err
	}

	j := t.pos + 1
	if dir == Prev {
		j = t.pos - 1
	}
	if j < 0 || j >= len(t.list) {
		return Batch{Operation: OpMoveAdjacent, Sectors: []string{t.sector}}, nil
	}

	return e.exchange(OpMoveAdjacent, products, t.list, t.pos, j, t.sector)
}

// exchange trades the slots at positions i and j of a sector list. Order values
// are swapped directly unless the sector holds an out-of-catalog order, in which
// case the swapped list is renumbered so no invalid value lands on another product.
func (e *Engine) exchange(op Operation, products, list []Product, i, j int, code string) (Batch, error) {
	stray := slices.ContainsFunc(list, func(p Product) bool { return !e.codec.InRange(p.Order) })
	if !stray {
		orders := map[string]int{
			list[i].ID: list[j].Order,
			list[j].ID: list[i].Order,
		}
		return e.finish(op, products, orders, nil, nil, code)
	}

	swapped := slices.Clone(list)
	swapped[i], swapped[j] = swapped[j], swapped[i]
	orders, err := e.compactor.renumber(swapped, code)
	if err != nil {
		return Batch{}, err
	}
	e.logger.Warn("re-encoding sector holding out-of-catalog orders",
		"operation", string(op),
		"sector", code,
	)
	return e.finish(op, products, orders, nil, nil, code)
}

// MoveToPosition moves id to the 1-based target position inside its sector,
// shifting the products in between by one.
func (e *Engine) MoveToPosition(products []Product, id string, target int) (Batch, error) {
	t, err := e.locate(products, id)
	if err != nil {
		return Batch{}, err
	}
	return e.moveWithin(OpMoveToPosition, products, t, target)
}

func (e *Engine) moveWithin(op Operation, products []Product, t located, target int) (Batch, error) {
	if target < 1 || target > len(t.list) {
		err := outOfRange("target position", target, 1, len(t.list))
		err.ProductID = t.product.ID
		err.Sector = t.sector
		return Batch{}, err
	}

	list := slices.Delete(slices.Clone(t.list), t.pos, t.pos+1)
	list = slices.Insert(list, target-1, t.product)

	orders, err := e.compactor.renumber(list, t.sector)
	if err != nil {
		return Batch{}, err
	}
	return e.finish(op, products, orders, nil, nil, t.sector)
}

// ChangeSector moves id to sector code at target (Append for the end).
// The vacated sector is compacted; products at or after target shift up by one.
func (e *Engine) ChangeSector(products []Product, id, code string, target int) (Batch, error) {
	code = catalog.NormalizeCode(code)
	if !e.catalog.Contains(code) {
		err := invalidSectorCode(code)
		err.ProductID = id
		return Batch{}, err
	}

	t, err := e.locate(products, id)
	if err != nil {
		return Batch{}, err
	}

	if code == t.sector {
		if target == Append {
			target = len(t.list)
		}
		return e.moveWithin(OpChangeSector, products, t, target)
	}

	dest, err := e.sectorList(products, code)
	if err != nil {
		return Batch{}, err
	}
	if target == Append {
		target = len(dest) + 1
	}
	if target < 1 || target > len(dest)+1 {
		err := outOfRange("target position", target, 1, len(dest)+1)
		err.ProductID = id
		err.Sector = code
		return Batch{}, err
	}

	rest := slices.Delete(slices.Clone(t.list), t.pos, t.pos+1)
	dest = slices.Insert(slices.Clone(dest), target-1, t.product)

	orders, err := e.compactor.renumber(rest, t.sector)
	if err != nil {
		return Batch{}, err
	}
	destOrders, err := e.compactor.renumber(dest, code)
	if err != nil {
		return Batch{}, err
	}
	for k, v := range destOrders {
		orders[k] = v
	}
	return e.finish(OpChangeSector, products, orders, nil, nil, t.sector, code)
}

// Swap exchanges the orders of two products of the same sector.
func (e *Engine) Swap(products []Product, id1, id2 string) (Batch, error) {
	a, err := e.locate(products, id1)
	if err != nil {
		return Batch{}, err
	}
	b, err := e.locate(products, id2)
	if err != nil {
		return Batch{}, err
	}

	if a.sector != b.sector {
		return Batch{}, &Error{
			Code:      ErrCodeCrossSectorSwap,
			Message:   "products belong to different sectors",
			ProductID: id1,
			Sector:    a.sector,
			Details: map[string]string{
				"other_product": id2,
				"other_sector":  b.sector,
			},
		}
	}
	if id1 == id2 {
		return Batch{Operation: OpSwap, Sectors: []string{a.sector}}, nil
	}

	return e.exchange(OpSwap, products, a.list, a.pos, b.pos, a.sector)
}

// Remove deletes id's slot and compacts its sector.
func (e *Engine) Remove(products []Product, id string) (Batch, error) {
	t, err := e.locate(products, id)
	if err != nil {
		return Batch{}, err
	}

	rest := slices.Delete(slices.Clone(t.list), t.pos, t.pos+1)
	orders, err := e.compactor.renumber(rest, t.sector)
	if err != nil {
		return Batch{}, err
	}
	return e.finish(OpRemove, products, orders, nil, []string{id}, t.sector)
}

// Insert places p in sector code at target (Append for the end).
// p.Order is ignored; the assigned order is in the batch's Created entry.
func (e *Engine) Insert(products []Product, p Product, code string, target int) (Batch, error) {
	if err := e.checkIDs(products); err != nil {
		return Batch{}, err
	}
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return Batch{}, &Error{Code: ErrCodeInvalidProduct, Message: "product id is empty"}
	}
	if _, exists := findProduct(products, p.ID); exists {
		return Batch{}, &Error{
			Code:      ErrCodeDuplicateProduct,
			Message:   "product id already in collection",
			ProductID: p.ID,
		}
	}

	code = catalog.NormalizeCode(code)
	if !e.catalog.Contains(code) {
		err := invalidSectorCode(code)
		err.ProductID = p.ID
		return Batch{}, err
	}

	list, err := e.sectorList(products, code)
	if err != nil {
		return Batch{}, err
	}
	if target == Append {
		target = len(list) + 1
	}
	if target < 1 || target > len(list)+1 {
		err := outOfRange("target position", target, 1, len(list)+1)
		err.ProductID = p.ID
		err.Sector = code
		return Batch{}, err
	}

	list = slices.Insert(slices.Clone(list), target-1, p)
	orders, err := e.compactor.renumber(list, code)
	if err != nil {
		return Batch{}, err
	}
	p.Order = orders[p.ID]
	delete(orders, p.ID)
	return e.finish(OpInsert, products, orders, []Product{p}, nil, code)
}

// Repair compacts every populated sector. Products whose order addresses no
// catalog sector are re-encoded into the first sector, regardless of strict mode.
func (e *Engine) Repair(products []Product) (Batch, error) {
	if err := e.checkIDs(products); err != nil {
		return Batch{}, err
	}

	var sectors []string
	for _, p := range products {
		if !e.codec.InRange(p.Order) {
			e.logger.Warn("repair: order outside sector catalog, moving to first sector",
				"product", p.ID,
				"order", p.Order,
				"sector", e.catalog.First().Code,
			)
		}
	}

	orders := make(map[string]int, len(products))
	for code, list := range e.index.GroupBySector(products) {
		sector, err := e.compactor.renumber(list, code)
		if err != nil {
			return Batch{}, err
		}
		for id, o := range sector {
			orders[id] = o
		}
		sectors = append(sectors, code)
	}
	return e.finish(OpRepair, products, orders, nil, nil, sectors...)
}

// Audit reports every integrity problem in products.
func (e *Engine) Audit(products []Product) []Finding {
	return e.validator.Audit(products)
}

// located is a product resolved against its sector.
type located struct {
	product Product
	sector  string
	list    []Product // sector products in sequence order
	pos     int       // 0-based index of product in list
}

func (e *Engine) locate(products []Product, id string) (located, error) {
	if err := e.checkIDs(products); err != nil {
		return located{}, err
	}
	p, ok := findProduct(products, id)
	if !ok {
		return located{}, notFound(id)
	}
	code := e.codec.DecodeSector(p.Order)
	list, err := e.sectorList(products, code)
	if err != nil {
		return located{}, err
	}
	return located{product: p, sector: code, list: list, pos: positionOf(list, id)}, nil
}

// sectorList returns the ordered products of code, applying the strict-sector policy
// to members whose order only reached code through the first-sector fallback.
func (e *Engine) sectorList(products []Product, code string) ([]Product, error) {
	list := e.index.ProductsInSector(products, code)
	for _, p := range list {
		if e.codec.InRange(p.Order) {
			continue
		}
		if e.strict {
			err := invalidSectorIndex(p.Order, e.codec.SectorIndexOf(p.Order))
			err.ProductID = p.ID
			return nil, err
		}
		e.logger.Warn("order outside sector catalog, treating as first sector",
			"product", p.ID,
			"order", p.Order,
			"sector", code,
		)
	}
	return list, nil
}

func (e *Engine) checkIDs(products []Product) error {
	seen := make(map[string]struct{}, len(products))
	for _, p := range products {
		if _, dup := seen[p.ID]; dup {
			return &Error{
				Code:      ErrCodeInconsistentState,
				Message:   "product id appears more than once",
				ProductID: p.ID,
			}
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// finish turns the computed orders into a Batch and checks the resulting state of
// every touched sector.
func (e *Engine) finish(op Operation, before []Product, orders map[string]int, created []Product, deleted []string, sectors ...string) (Batch, error) {
	b := Batch{
		Operation: op,
		Sectors:   e.sortSectors(sectors),
		Created:   created,
		Deleted:   deleted,
	}
	for _, p := range before {
		if slices.Contains(deleted, p.ID) {
			continue
		}
		if o, ok := orders[p.ID]; ok && o != p.Order {
			b.Updates = append(b.Updates, Update{ProductID: p.ID, Order: o})
		}
	}
	slices.SortFunc(b.Updates, func(x, y Update) int { return x.Order - y.Order })

	if err := e.checkValues(op, b); err != nil {
		return Batch{}, err
	}

	after := b.Apply(before)
	var touched []Product
	for _, code := range b.Sectors {
		if err := e.validator.CheckSectorConsistency(after, code); err != nil {
			e.logger.Error("ordering invariant violated",
				"operation", string(op),
				"sector", code,
				"error", err,
			)
			return Batch{}, err
		}
		touched = append(touched, e.index.ProductsInSector(after, code)...)
	}
	if err := e.validator.CheckUniqueness(touched); err != nil {
		e.logger.Error("ordering invariant violated",
			"operation", string(op),
			"error", err,
		)
		return Batch{}, err
	}
	return b, nil
}

// checkValues rejects a batch that would write an order outside the catalog.
func (e *Engine) checkValues(op Operation, b Batch) error {
	check := func(id string, order int) error {
		if err := e.validator.ValidateValue(order); err != nil {
			e.logger.Error("ordering invariant violated",
				"operation", string(op),
				"product", id,
				"order", order,
				"error", err,
			)
			return &Error{
				Code:      ErrCodeInconsistentState,
				Message:   "batch assigns an order outside the sector catalog",
				ProductID: id,
				Details:   map[string]string{"order": strconv.Itoa(order)},
			}
		}
		return nil
	}
	for _, u := range b.Updates {
		if err := check(u.ProductID, u.Order); err != nil {
			return err
		}
	}
	for _, p := range b.Created {
		if err := check(p.ID, p.Order); err != nil {
			return err
		}
	}
	return nil
}

// sortSectors dedupes codes and sorts them by catalog position.
func (e *Engine) sortSectors(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b string) int {
		pa, _ := e.catalog.Position(a)
		pb, _ := e.catalog.Position(b)
		return pa - pb
	})
	return out
}
