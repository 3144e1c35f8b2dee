package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/fieldlens-cli/internal/pipeline"
	"github.com/KaramelBytes/fieldlens-cli/internal/source"
)

var (
	statsPage      int
	statsLimit     int
	statsFields    string
	statsFormat    string
	statsOutput    string
	statsExtended  bool
	statsOutlierTh float64
)

var statsCmd = &cobra.Command{
	Use:   "stats <field>",
	Short: "Summarize a numeric field of one page (min, max, avg, sum, median, stdDev)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		field := args[0]
		req, err := pageRequest(statsPage, statsLimit, statsFields)
		if err != nil {
			return err
		}
		opt := pipeline.StatsOptions{Extended: statsExtended, OutlierThreshold: cfg.OutlierThreshold}
		if cmd.Flags().Changed("outlier-threshold") {
			opt.OutlierThreshold = statsOutlierTh
		}
		return withDataset(cmd, func(ctx context.Context, ds *source.Dataset) error {
			res, err := newPipeline(ds).Stats(ctx, field, req, opt)
			var nerr *pipeline.NonNumericFieldError
			if errors.As(err, &nerr) {
				// The rejection body is the command's answer; the error sets the exit code.
				if werr := writeResult(cmd, statsFormat, statsOutput, nerr.Rejection()); werr != nil {
					return werr
				}
				if ferr := flushMetrics(); ferr != nil {
					logger.WarnContext(ctx, "flush metrics", "error", ferr)
				}
				return err
			}
			if err != nil {
				return err
			}
			return writeResult(cmd, statsFormat, statsOutput, res)
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	addPageFlags(statsCmd, &statsPage, &statsLimit, &statsFields)
	addOutputFlags(statsCmd, &statsFormat, &statsOutput)
	statsCmd.Flags().BoolVar(&statsExtended, "extended", false, "add quartiles, IQR, MAD and robust outlier counts")
	statsCmd.Flags().Float64Var(&statsOutlierTh, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based; overrides config)")
}
