package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/gmarchiori/wafertrack/internal/collation"
	"github.com/gmarchiori/wafertrack/internal/common"
	"github.com/gmarchiori/wafertrack/internal/datasheet"
	"github.com/gmarchiori/wafertrack/internal/repository"
	"github.com/gmarchiori/wafertrack/internal/snapshot"
)

// Exit codes of the CLI surface.
const (
	exitOK       = 0
	exitConfig   = 1
	exitDatabase = 2
	exitData     = 3
)

var (
	configFile   string
	snapshotFile string
	verbose      bool

	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "wafertrack",
	Short: "Reporting pipeline for photonics component test data",
	Long: `wafertrack reads component documents (wafers, bars, chips, modules,
blueprints, test results) from the lab database, organizes them into
collations, and produces dot-out reports, wafer-map exports and
golden-sample CSVs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = common.LoadConfig()
		file := configFile
		if file == "" {
			file = os.Getenv("WAFERTRACK_CONFIG")
		}
		if file != "" {
			if err := cfg.ApplyFile(file); err != nil {
				return err
			}
		}

		level := logLevel(cfg.Log.Level)
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		return nil
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional YAML config file")
	rootCmd.PersistentFlags().StringVar(&snapshotFile, "snapshot", "", "read from a local snapshot instead of the database")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(waferStatusCmd)
	rootCmd.AddCommand(waferPlotCmd)
	rootCmd.AddCommand(chipDotOutCmd)
	rootCmd.AddCommand(moduleDotOutCmd)
	rootCmd.AddCommand(goldenSampleCmd)
	rootCmd.AddCommand(snapshotCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// exitCode maps the error taxonomy onto the documented exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, common.ErrInvalidInput):
		return exitConfig
	case errors.Is(err, common.ErrNotFound),
		errors.Is(err, common.ErrMissingInformation),
		errors.Is(err, common.ErrValidationFailed),
		errors.Is(err, common.ErrUnsupportedWaferType),
		errors.Is(err, common.ErrMalformedDefinition),
		errors.Is(err, common.ErrTypeConflict):
		return exitData
	default:
		return exitDatabase
	}
}

// deps bundles what a subcommand needs: a loader over either the live
// database or a local snapshot, and the projector.
type deps struct {
	loader    *collation.Loader
	projector *datasheet.Projector
	pool      *pgxpool.Pool
	snap      *snapshot.Store
}

func (d *deps) close() {
	if d.pool != nil {
		repository.Close(d.pool, logger)
	}
	if d.snap != nil {
		d.snap.Close()
	}
}

func openDeps(ctx context.Context) (*deps, error) {
	norm := datasheet.Normalizer{
		ScientificNotationThreshold: cfg.Report.ScientificNotationThreshold,
		AllResultDigits:             cfg.Report.AllResultDigits,
	}
	d := &deps{projector: datasheet.NewProjector(norm, logger)}

	if snapshotFile != "" {
		snap, err := snapshot.Open(snapshotFile, logger)
		if err != nil {
			return nil, err
		}
		d.snap = snap
		d.loader = collation.NewLoader(nil, snap.Components(), snap.Blueprints(), logger)
		return d, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pool, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	d.pool = pool
	components := repository.NewComponentRepository(pool, logger)
	blueprints := repository.NewBlueprintRepository(pool, logger)
	d.loader = collation.NewLoader(pool, components, blueprints, logger)
	return d, nil
}
