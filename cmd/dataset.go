package cmd

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/fieldlens-cli/internal/pipeline"
	"github.com/KaramelBytes/fieldlens-cli/internal/report"
	"github.com/KaramelBytes/fieldlens-cli/internal/source"
	"github.com/KaramelBytes/fieldlens-cli/internal/utils"
)

// sourceOptions maps configuration onto source.Options.
func sourceOptions() source.Options {
	return source.Options{
		Delimiter:       cfg.Delimiter(),
		Sheet:           cfg.XLSXSheet,
		Table:           cfg.SQLTable,
		MongoDatabase:   cfg.MongoDatabase,
		MongoCollection: cfg.MongoCollection,
		MongoOwner:      cfg.MongoOwner,
		Timeout:         time.Duration(cfg.SourceTimeoutSec) * time.Second,
		Logger:          logger,
	}
}

func openDataset(ctx context.Context) (*source.Dataset, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return source.Open(ctx, cfg.Source, sourceOptions())
}

func newPipeline(ds *source.Dataset) *pipeline.Pipeline {
	return pipeline.New(ds,
		pipeline.WithLogger(logger.With("source", ds.Name)),
		pipeline.WithObserver(recorder),
	)
}

// pageRequest applies configured defaults to unset page flags.
func pageRequest(page, limit int, fields string) (pipeline.PageRequest, error) {
	if page == 0 {
		page = cfg.DefaultPage
	}
	if limit == 0 {
		limit = cfg.DefaultLimit
	}
	req := pipeline.NewPageRequest(page, limit, pipeline.ParseFields(fields))
	return req, req.Validate()
}

func addPageFlags(c *cobra.Command, page, limit *int, fields *string) {
	c.Flags().IntVar(page, "page", 0, "1-based page number (default from config, 1)")
	c.Flags().IntVar(limit, "limit", 0, "rows per page (default from config, 100)")
	c.Flags().StringVar(fields, "fields", "", "comma-separated fields to project before typing")
}

func addOutputFlags(c *cobra.Command, format, output *string) {
	c.Flags().StringVarP(format, "format", "f", "", "output format: json|yaml|markdown (default from config)")
	c.Flags().StringVarP(output, "output", "o", "", "optional path to write the result instead of stdout")
}

// writeResult renders v and writes it to output, or to the command's stdout.
func writeResult(cmd *cobra.Command, format, output string, v any) error {
	if format == "" {
		format = cfg.OutputFormat
	}
	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := report.Write(&buf, f, v); err != nil {
		return err
	}
	if output != "" {
		if err := utils.SafeWriteFile(output, buf.Bytes()); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s to %s\n", cmd.Name(), output)
		return nil
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

// withDataset opens the configured source, runs fn and closes the source.
func withDataset(cmd *cobra.Command, fn func(ctx context.Context, ds *source.Dataset) error) error {
	ctx := runContext(cmd)
	ds, err := openDataset(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ds.Close(); cerr != nil {
			logger.Warn("close source", "error", cerr)
		}
	}()
	return fn(ctx, ds)
}
