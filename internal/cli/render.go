package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/roach88/bakeorder/internal/ordering"
	"github.com/roach88/bakeorder/internal/reorder"
)

// ProductView is the JSON shape of a listed product.
type ProductView struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Order    string `json:"order"`
	Sector   string `json:"sector"`
	Sequence int    `json:"sequence"`
}

// MutationView is the JSON shape of a mutation result.
type MutationView struct {
	Operation ordering.Operation `json:"operation"`
	Committed bool               `json:"committed"`
	Seq       int64              `json:"seq,omitempty"`
	Batch     ordering.Batch     `json:"batch"`
}

func formatOrder(codec *ordering.Codec, order int) string {
	text, err := codec.Format(order)
	if err != nil {
		return strconv.Itoa(order)
	}
	return text
}

func viewProducts(eng *ordering.Engine, products []ordering.Product) []ProductView {
	codec := eng.Codec()
	views := make([]ProductView, len(products))
	for i, p := range products {
		views[i] = ProductView{
			ID:       p.ID,
			Name:     p.Name,
			Order:    formatOrder(codec, p.Order),
			Sector:   codec.DecodeSector(p.Order),
			Sequence: codec.DecodeSequence(p.Order),
		}
	}
	return views
}

// writeProducts prints products grouped under their sector headings, in
// catalog order.
func writeProducts(w io.Writer, eng *ordering.Engine, products []ordering.Product) {
	if len(products) == 0 {
		fmt.Fprintln(w, "No products.")
		return
	}

	groups := eng.Index().GroupBySector(products)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, s := range eng.Catalog().Sectors() {
		list := groups[s.Code]
		if len(list) == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", s.Code, s.Name)
		for _, p := range list {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", formatOrder(eng.Codec(), p.Order), p.ID, p.Name)
		}
	}
	tw.Flush()
}

// writeMutation prints the outcome of a mutation and, in verbose mode, every
// order it assigned.
func writeMutation(w io.Writer, eng *ordering.Engine, op ordering.Operation, res reorder.Result, verbose bool) {
	if !res.Committed() {
		fmt.Fprintf(w, "• %s: nothing to change\n", op)
		return
	}

	changed := len(res.Batch.Updates) + len(res.Batch.Created)
	fmt.Fprintf(w, "✓ %s committed as batch %s (seq %d, %d product(s))\n", op, res.BatchID, res.Seq, changed)
	if !verbose {
		return
	}
	for _, p := range res.Batch.Created {
		fmt.Fprintf(w, "  + %s  %s\n", formatOrder(eng.Codec(), p.Order), p.ID)
	}
	for _, u := range res.Batch.Updates {
		fmt.Fprintf(w, "    %s  %s\n", formatOrder(eng.Codec(), u.Order), u.ProductID)
	}
	for _, id := range res.Batch.Deleted {
		fmt.Fprintf(w, "  - %s\n", id)
	}
}
