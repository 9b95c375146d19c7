package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rmax-ai/schemabuilder/pkg/graph"
	"github.com/rmax-ai/schemabuilder/pkg/reports"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export schemas or properties",
	Long: `Export the stored schemas or properties as CSV or JSON.

Examples:
  schemabuilder export --type schemas
  schemabuilder export --type properties --format json -o properties.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reportType, _ := cmd.Flags().GetString("type")
		format, _ := cmd.Flags().GetString("format")
		search, _ := cmd.Flags().GetString("search")
		output, _ := cmd.Flags().GetString("output")

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		gen, err := reports.NewReportGenerator(reports.ReportType(reportType), st, graph.SchemaOrg)
		if err != nil {
			return err
		}
		r, err := gen.Generate(cmd.Context(), reports.ReportParams{
			Format: reports.ReportFormat(format),
			Search: search,
		})
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}
		_, err = io.Copy(w, r)
		return err
	},
}

func init() {
	exportCmd.Flags().String("type", string(reports.ReportTypeSchemas), "schemas|properties")
	exportCmd.Flags().String("format", string(reports.ReportFormatCSV), "csv|json")
	exportCmd.Flags().String("search", "", "only export matching rows")
	exportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
}
