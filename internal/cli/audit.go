package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bakeorder/internal/ordering"
	"github.com/roach88/bakeorder/internal/store"
)

// AuditResult is the JSON shape of the audit command.
type AuditResult struct {
	Clean    bool               `json:"clean"`
	Findings []ordering.Finding `json:"findings"`
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check the stored collection for ordering problems",
		Long: `Report gaps, duplicate orders and out-of-catalog values.

Exit codes:
  0 - No findings
  1 - One or more findings (run "bakeorder repair" to fix gaps)
  2 - Command error`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(rootOpts, cmd)
		},
	}
}

func runAudit(opts *RootOptions, cmd *cobra.Command) error {
	e, err := opts.openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	findings, err := e.service.Audit(cmd.Context())
	if err != nil {
		return fail(e.out, err)
	}
	if findings == nil {
		findings = []ordering.Finding{}
	}

	result := AuditResult{Clean: len(findings) == 0, Findings: findings}
	if err := e.out.Render("", result, func(w io.Writer) {
		if result.Clean {
			fmt.Fprintln(w, "✓ No findings")
			return
		}
		fmt.Fprintf(w, "✗ %d finding(s)\n", len(findings))
		for _, f := range findings {
			fmt.Fprintf(w, "  %s: %s\n", f.Kind, f.Message)
		}
	}); err != nil {
		return err
	}

	if !result.Clean {
		return NewExitError(ExitFailure, fmt.Sprintf("audit found %d problem(s)", len(findings)))
	}
	return nil
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:           "history",
		Short:         "Show recently committed batches, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, limit, cmd)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of batches to show (0 for all)")

	return cmd
}

func runHistory(opts *RootOptions, limit int, cmd *cobra.Command) error {
	e, err := opts.openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	records, err := e.service.History(cmd.Context(), limit)
	if err != nil {
		return fail(e.out, err)
	}

	return e.out.Render("", records, func(w io.Writer) {
		writeHistory(w, records, opts.Verbose)
	})
}

func writeHistory(w io.Writer, records []store.BatchRecord, verbose bool) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No batches committed yet.")
		return
	}
	for _, r := range records {
		fmt.Fprintf(w, "%5d  %-16s  %-40s  %s\n", r.Seq, r.Operation, r.ID, strings.Join(r.Sectors, ","))
		if verbose {
			fmt.Fprintf(w, "       %s\n", r.Payload)
		}
	}
}
