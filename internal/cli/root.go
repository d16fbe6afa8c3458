package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// DefaultDatabase is used when --db is not given.
const DefaultDatabase = "bakeorder.db"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose       bool
	Format        string // "json" | "text"
	Database      string
	Catalog       string // CUE or YAML sector catalog; empty uses the built-in one
	StrictSectors bool
	MetricsFile   string // prometheus text file written when the command finishes
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the bakeorder CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bakeorder",
		Short: "bakeorder - bakery product ordering",
		Long: `Maintain the display order of bakery products.

Every product carries a five-digit order: two digits for its sector in the
catalog and three for its position inside the sector. Commands move, insert
and remove products while keeping every sector dense and every order unique.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				msg := fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
				out := &OutputFormatter{Format: "text", Writer: cmd.ErrOrStderr()}
				_ = out.Error(ErrCodeArgument, msg, nil)
				return NewExitError(ExitCommandError, msg)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", DefaultDatabase, "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.Catalog, "catalog", "", "sector catalog file (.cue, .yaml)")
	cmd.PersistentFlags().BoolVar(&opts.StrictSectors, "strict-sectors", false,
		"reject products whose order names a sector outside the catalog")
	cmd.PersistentFlags().StringVar(&opts.MetricsFile, "metrics-file", "",
		"write reorder metrics in prometheus text format to this file")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewMoveCommand(opts))
	cmd.AddCommand(NewPositionCommand(opts))
	cmd.AddCommand(NewSectorCommand(opts))
	cmd.AddCommand(NewSwapCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewRepairCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// formatter builds the output formatter for a command invocation.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // keeps JSON on stdout parseable
		Verbose:   o.Verbose,
	}
}
