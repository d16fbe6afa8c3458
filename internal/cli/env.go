package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/bakeorder/internal/catalog"
	"github.com/roach88/bakeorder/internal/ordering"
	"github.com/roach88/bakeorder/internal/reorder"
	"github.com/roach88/bakeorder/internal/store"
)

// env is the per-invocation wiring shared by the product commands.
type env struct {
	out     *OutputFormatter
	service *reorder.Service
	store   *store.Store
	logger  *slog.Logger

	registry    *prometheus.Registry
	metricsFile string
}

// Close writes the metrics file, if one was requested, and closes the database.
func (e *env) Close() {
	if e.metricsFile != "" {
		if err := prometheus.WriteToTextfile(e.metricsFile, e.registry); err != nil {
			e.logger.Error("error writing metrics file", "path", e.metricsFile, "error", err)
		}
	}
	if err := e.store.Close(); err != nil {
		e.logger.Error("error closing database", "error", err)
	}
}

// loadCatalog returns the catalog named by --catalog, or the built-in one.
func (o *RootOptions) loadCatalog() (*catalog.Catalog, error) {
	if o.Catalog == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(o.Catalog)
}

// newLogger writes warnings to w, or everything from debug up in verbose mode.
func (o *RootOptions) newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openEnv loads the catalog, opens the database and builds the service.
// Failures are reported through the formatter and returned as command errors.
func (o *RootOptions) openEnv(cmd *cobra.Command) (*env, error) {
	out := o.formatter(cmd)
	logger := o.newLogger(cmd.ErrOrStderr())

	cat, err := o.loadCatalog()
	if err != nil {
		return nil, failWith(out, ErrCodeCatalog, err)
	}

	st, err := store.Open(o.Database)
	if err != nil {
		return nil, failWith(out, ErrCodeDatabase, fmt.Errorf("open %s: %w", o.Database, err))
	}
	out.VerboseLog("database %s, catalog of %d sector(s)", o.Database, cat.Len())

	eng := ordering.New(cat,
		ordering.WithLogger(logger),
		ordering.WithStrictSectors(o.StrictSectors),
	)
	reg := prometheus.NewRegistry()
	svc := reorder.New(st, eng,
		reorder.WithLogger(logger),
		reorder.WithMetrics(reorder.NewMetrics(reg)),
	)

	return &env{
		out:         out,
		service:     svc,
		store:       st,
		logger:      logger,
		registry:    reg,
		metricsFile: o.MetricsFile,
	}, nil
}
