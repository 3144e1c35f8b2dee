package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/fieldlens-cli/internal/config"
	"github.com/KaramelBytes/fieldlens-cli/internal/logging"
	"github.com/KaramelBytes/fieldlens-cli/internal/metrics"
)

var (
	// Global flags
	cfgFile         string
	debug           bool
	flagSource      string
	flagLogLevel    string
	flagMetricsFile string

	// Loaded configuration
	cfg *cfgpkg.Global
	// Per-run collaborators, set up by loadConfig.
	logger   = logging.Discard()
	recorder *metrics.Recorder
	runID    string
)

var rootCmd = &cobra.Command{
	Use:   "fieldlens",
	Short: "FieldLens CLI: type, page and summarize tabular records",
	Long: `FieldLens reads records from CSV/TSV/XLSX files or database tables, normalizes numeric-looking
values, infers a type for every field and computes summary statistics for numeric fields.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return flushMetrics()
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.fieldlens/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&flagSource, "source", "s", "", "data source: .csv/.tsv/.xlsx path, sqlite://, postgres://, mysql:// or mongodb:// URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagMetricsFile, "metrics-textfile", "", "write Prometheus metrics to this file on exit (overrides config)")
}

func loadConfig() {
	// .env in the working directory feeds FIELDLENS_* variables.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load .env: %v\n", err)
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = &cfgpkg.Global{}
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("source") {
		cfg.Source = flagSource
	}
	if f.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if f.Changed("metrics-textfile") {
		cfg.MetricsTextfile = flagMetricsFile
	}

	level := logging.ParseLevel(cfg.LogLevel)
	if debug {
		level = slog.LevelDebug
	}
	runID = uuid.NewString()
	logger = logging.New(os.Stderr, level, cfg.LogFormat).With(slog.String("app", "fieldlens"))
	recorder = metrics.New()
}

// runContext tags ctx with the current run id.
func runContext(cmd *cobra.Command) context.Context {
	return logging.WithRunID(cmd.Context(), runID)
}

func flushMetrics() error {
	if cfg == nil || cfg.MetricsTextfile == "" {
		return nil
	}
	if err := recorder.WriteTextfile(cfg.MetricsTextfile); err != nil {
		return err
	}
	logger.Debug("metrics written", slog.String("path", cfg.MetricsTextfile), slog.String("run_id", runID))
	return nil
}
