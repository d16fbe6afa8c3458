package ordering

// Compactor renumbers sectors to dense 1-based sequences.
type Compactor struct {
	codec *Codec
	index *Index
}

// NewCompactor creates a Compactor.
func NewCompactor(codec *Codec, index *Index) *Compactor {
	return &Compactor{codec: codec, index: index}
}

// Compact returns a copy of products in which sector code holds sequences 1..n,
// keeping the existing relative order. Already-dense sectors come back unchanged.
func (c *Compactor) Compact(products []Product, code string) ([]Product, error) {
	if !c.codec.Catalog().Contains(code) {
		return nil, invalidSectorCode(code)
	}
	orders, err := c.renumber(c.index.ProductsInSector(products, code), code)
	if err != nil {
		return nil, err
	}
	return withOrders(products, orders), nil
}

// CompactAll compacts every populated sector.
func (c *Compactor) CompactAll(products []Product) ([]Product, error) {
	orders := make(map[string]int, len(products))
	for code, list := range c.index.GroupBySector(products) {
		sector, err := c.renumber(list, code)
		if err != nil {
			return nil, err
		}
		for id, o := range sector {
			orders[id] = o
		}
	}
	return withOrders(products, orders), nil
}

// renumber assigns sequences 1..n to list, in list order.
func (c *Compactor) renumber(list []Product, code string) (map[string]int, error) {
	if len(list) > MaxSequence {
		e := outOfRange("sector size", len(list), 0, MaxSequence)
		e.Sector = code
		return nil, e
	}
	orders := make(map[string]int, len(list))
	for i, p := range list {
		o, err := c.codec.Encode(code, i+1)
		if err != nil {
			return nil, err
		}
		orders[p.ID] = o
	}
	return orders, nil
}

func withOrders(products []Product, orders map[string]int) []Product {
	out := make([]Product, len(products))
	for i, p := range products {
		if o, ok := orders[p.ID]; ok {
			p.Order = o
		}
		out[i] = p
	}
	return out
}
