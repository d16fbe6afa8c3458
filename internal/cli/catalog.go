package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/bakeorder/internal/catalog"
)

// SectorView is one catalog entry with its two-digit index.
type SectorView struct {
	Index int    `json:"index"`
	Code  string `json:"code"`
	Name  string `json:"name"`
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog [path]",
		Short: "Validate and print a sector catalog",
		Long: `Load a sector catalog and print its sectors with their indices.

Without a path the catalog named by --catalog is used, or the built-in
bakery catalog when that is unset as well.

Examples:
  bakeorder catalog
  bakeorder catalog ./sectors.cue
  bakeorder catalog ./sectors.yaml --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Catalog
			if len(args) == 1 {
				path = args[0]
			}
			return runCatalog(rootOpts, path, cmd)
		},
	}
}

func runCatalog(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	cat := catalog.Default()
	if path != "" {
		var err error
		if cat, err = catalog.Load(path); err != nil {
			return failWith(out, ErrCodeCatalog, err)
		}
		out.VerboseLog("loaded %s", path)
	}

	views := make([]SectorView, 0, cat.Len())
	for i, s := range cat.Sectors() {
		views = append(views, SectorView{Index: i + 1, Code: s.Code, Name: s.Name})
	}

	return out.Render("", views, func(w io.Writer) {
		for _, v := range views {
			fmt.Fprintf(w, "%02d  %-8s  %s\n", v.Index, v.Code, v.Name)
		}
	})
}
