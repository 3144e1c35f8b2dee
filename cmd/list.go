package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/fieldlens-cli/internal/report"
	"github.com/KaramelBytes/fieldlens-cli/internal/source"
)

var (
	listPage   int
	listLimit  int
	listFields string
	listFormat string
	listOutput string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of normalized records with inferred field types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := pageRequest(listPage, listLimit, listFields)
		if err != nil {
			return err
		}
		return withDataset(cmd, func(ctx context.Context, ds *source.Dataset) error {
			listing, err := newPipeline(ds).List(ctx, req)
			if err != nil {
				return err
			}
			logger.InfoContext(ctx, "listed records",
				"source", ds.Name,
				"rows", len(listing.Data),
				"total", listing.Count,
			)
			return writeResult(cmd, listFormat, listOutput, report.NewListResult(ds.Name, listing))
		})
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	addPageFlags(listCmd, &listPage, &listLimit, &listFields)
	addOutputFlags(listCmd, &listFormat, &listOutput)
}
