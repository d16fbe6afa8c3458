package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/bakeorder/internal/ordering"
	"github.com/roach88/bakeorder/internal/reorder"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var sector string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products in display order",
		Long: `List products grouped by sector in catalog order.

Examples:
  bakeorder list
  bakeorder list --sector GRL --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, sector, cmd)
		},
	}

	cmd.Flags().StringVar(&sector, "sector", "", "only list this sector")

	return cmd
}

func runList(opts *RootOptions, sector string, cmd *cobra.Command) error {
	e, err := opts.openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	products, err := e.service.Products(cmd.Context(), sector)
	if err != nil {
		return fail(e.out, err)
	}

	eng := e.service.Engine()
	return e.out.Render("", viewProducts(eng, products), func(w io.Writer) {
		writeProducts(w, eng, products)
	})
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	var sector string
	var at int

	cmd := &cobra.Command{
		Use:   "add <id> <name>",
		Short: "Insert a new product into a sector",
		Long: `Insert a product at a position in a sector. Products at or after the
position shift down by one. Without --at the product is appended.

Examples:
  bakeorder add croissant "Croissant" --sector BOL
  bakeorder add pan-rustico "Pan rústico" --sector PAN --at 1`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := ordering.Product{ID: args[0], Name: args[1]}
			return runMutation(rootOpts, cmd, ordering.OpInsert,
				func(ctx context.Context, svc *reorder.Service) (reorder.Result, error) {
					return svc.Insert(ctx, p, sector, at)
				})
		},
	}

	cmd.Flags().StringVar(&sector, "sector", "", "sector code (required)")
	cmd.Flags().IntVar(&at, "at", ordering.Append, "1-based position (0 appends)")
	_ = cmd.MarkFlagRequired("sector")

	return cmd
}

// NewMoveCommand creates the move command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <id> <prev|next>",
		Short: "Swap a product with its neighbour",
		Long: `Move a product one place up (prev) or down (next) within its sector.
Moving past either end of the sector changes nothing.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := ordering.ParseDirection(args[1])
			if err != nil {
				return failWith(rootOpts.formatter(cmd), ErrCodeArgument, err)
			}
			return runMutation(rootOpts, cmd, ordering.OpMoveAdjacent,
				func(ctx context.Context, svc *reorder.Service) (reorder.Result, error) {
					return svc.MoveAdjacent(ctx, args[0], dir)
				})
		},
	}
	return cmd
}

// NewPositionCommand creates the position command.
func NewPositionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "position <id> <seq>",
		Short:         "Move a product to a position within its sector",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parsePosition(args[1])
			if err != nil {
				return failWith(rootOpts.formatter(cmd), ErrCodeArgument, err)
			}
			return runMutation(rootOpts, cmd, ordering.OpMoveToPosition,
				func(ctx context.Context, svc *reorder.Service) (reorder.Result, error) {
					return svc.MoveToPosition(ctx, args[0], target)
				})
		},
	}
	return cmd
}

// NewSectorCommand creates the sector command.
func NewSectorCommand(rootOpts *RootOptions) *cobra.Command {
	var at int

	cmd := &cobra.Command{
		Use:   "sector <id> <code>",
		Short: "Move a product to another sector",
		Long: `Move a product into another sector at --at (appended by default).
The sector it leaves is closed up.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(rootOpts, cmd, ordering.OpChangeSector,
				func(ctx context.Context, svc *reorder.Service) (reorder.Result, error) {
					return svc.ChangeSector(ctx, args[0], args[1], at)
				})
		},
	}

	cmd.Flags().IntVar(&at, "at", ordering.Append, "1-based position (0 appends)")

	return cmd
}

// NewSwapCommand creates the swap command.
func NewSwapCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "swap <id1> <id2>",
		Short:         "Exchange the positions of two products in one sector",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(rootOpts, cmd, ordering.OpSwap,
				func(ctx context.Context, svc *reorder.Service) (reorder.Result, error) {
					return svc.Swap(ctx, args[0], args[1])
				})
		},
	}
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <id>",
		Short:         "Delete a product and close the gap",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(rootOpts, cmd, ordering.OpRemove,
				func(ctx context.Context, svc *reorder.Service) (reorder.Result, error) {
					return svc.Remove(ctx, args[0])
				})
		},
	}
}

// NewRepairCommand creates the repair command.
func NewRepairCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Renumber every sector densely",
		Long: `Renumber every sector to 1..n keeping relative order. Products whose
order names no catalog sector are moved to the end of the first sector.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(rootOpts, cmd, ordering.OpRepair,
				func(ctx context.Context, svc *reorder.Service) (reorder.Result, error) {
					return svc.Repair(ctx)
				})
		},
	}
}

type mutationFunc func(ctx context.Context, svc *reorder.Service) (reorder.Result, error)

// runMutation opens the service, applies fn once and reports the outcome.
// Rejections are not retried.
func runMutation(opts *RootOptions, cmd *cobra.Command, op ordering.Operation, fn mutationFunc) error {
	e, err := opts.openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := fn(cmd.Context(), e.service)
	if err != nil {
		return fail(e.out, err)
	}

	view := MutationView{
		Operation: op,
		Committed: res.Committed(),
		Seq:       res.Seq,
		Batch:     res.Batch,
	}
	return e.out.Render(res.BatchID, view, func(w io.Writer) {
		writeMutation(w, e.service.Engine(), op, res, opts.Verbose)
	})
}

func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q: must be an integer", s)
	}
	return n, nil
}
