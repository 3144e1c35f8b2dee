package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/fieldlens-cli/internal/report"
	"github.com/KaramelBytes/fieldlens-cli/internal/source"
)

var (
	fieldsPage   int
	fieldsLimit  int
	fieldsFields string
	fieldsFormat string
	fieldsOutput string
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Show the fields of a page and their inferred types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := pageRequest(fieldsPage, fieldsLimit, fieldsFields)
		if err != nil {
			return err
		}
		return withDataset(cmd, func(ctx context.Context, ds *source.Dataset) error {
			listing, err := newPipeline(ds).List(ctx, req)
			if err != nil {
				return err
			}
			return writeResult(cmd, fieldsFormat, fieldsOutput, report.NewFieldsSummary(ds.Name, listing))
		})
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
	addPageFlags(fieldsCmd, &fieldsPage, &fieldsLimit, &fieldsFields)
	addOutputFlags(fieldsCmd, &fieldsFormat, &fieldsOutput)
}
