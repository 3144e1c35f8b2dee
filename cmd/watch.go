package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/fieldlens-cli/internal/report"
	"github.com/KaramelBytes/fieldlens-cli/internal/source"
)

var (
	watchLimit    int
	watchFields   string
	watchFormat   string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-infer field types whenever the source file changes",
	Long:  "Prints the field summary of the first page, then again after every change to the CSV/TSV/XLSX source, until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Source
		if !isWatchable(path) {
			return fmt.Errorf("watch needs a .csv, .tsv or .xlsx source, got %q", source.Redact(path))
		}
		req, err := pageRequest(1, watchLimit, watchFields)
		if err != nil {
			return err
		}
		ctx := runContext(cmd)
		summarize := func() {
			ds, err := openDataset(ctx)
			if err != nil {
				logger.WarnContext(ctx, "reload source", slog.String("error", err.Error()))
				return
			}
			defer ds.Close()
			listing, err := newPipeline(ds).List(ctx, req)
			if err != nil {
				logger.WarnContext(ctx, "classify source", slog.String("error", err.Error()))
				return
			}
			if err := writeResult(cmd, watchFormat, "", report.NewFieldsSummary(ds.Name, listing)); err != nil {
				logger.WarnContext(ctx, "write summary", slog.String("error", err.Error()))
			}
		}
		summarize()
		return watchFile(ctx, path, watchDebounce, summarize)
	},
}

func isWatchable(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range []string{".csv", ".tsv", ".xlsx"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// watchFile calls onChange after writes to path settle for the debounce
// interval. It watches the parent directory so that editors that replace the
// file are noticed. It returns when ctx is done.
func watchFile(ctx context.Context, path string, debounce time.Duration, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger.InfoContext(ctx, "watching source", slog.String("path", abs))

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			logger.DebugContext(ctx, "source changed", slog.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			onChange()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "watch error", slog.String("error", err.Error()))
		}
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().IntVar(&watchLimit, "limit", 0, "rows to classify (default from config, 100)")
	watchCmd.Flags().StringVar(&watchFields, "fields", "", "comma-separated fields to project before typing")
	watchCmd.Flags().StringVarP(&watchFormat, "format", "f", "", "output format: json|yaml|markdown (default from config)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 250*time.Millisecond, "quiet period before re-reading a changed file")
}
