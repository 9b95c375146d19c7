package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rmax-ai/schemabuilder/pkg/graph"
	"github.com/rmax-ai/schemabuilder/pkg/store"
)

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "Inspect stored schemas",
}

var schemasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored schemas",
	Long: `List one page of stored schemas.

Examples:
  schemabuilder schemas list --search event
  schemabuilder schemas list --enabled false --per-page 50
  schemabuilder schemas list --search event --orderby relevance`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		filter := store.SchemaFilter{}
		filter.Search, _ = flags.GetString("search")
		filter.OrderBy, _ = flags.GetString("orderby")
		filter.Order, _ = flags.GetString("order")
		filter.Page, _ = flags.GetInt("page")
		filter.PerPage, _ = flags.GetInt("per-page")
		if enabled, _ := flags.GetString("enabled"); enabled != "" {
			b, err := strconv.ParseBool(enabled)
			if err != nil {
				return fmt.Errorf("invalid --enabled value %q", enabled)
			}
			filter.Enabled = &b
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		page, err := st.ListSchemas(cmd.Context(), filter)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tLABEL\tENABLED\tPROPERTIES\tMAPPING")
		for _, s := range page.Items {
			fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%d\t%s\n", s.ID, s.Title, graph.HumanTitle(s.Title), s.Enabled, len(s.PropertyIDs), s.Mapping)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d schemas, page %d of %d\n", page.Total, max(filter.Page, 1), page.TotalPages)
		return nil
	},
}

func init() {
	schemasListCmd.Flags().String("search", "", "substring of title or description")
	schemasListCmd.Flags().String("enabled", "", "filter by enabled state: true|false")
	schemasListCmd.Flags().String("orderby", "", "title|id|relevance")
	schemasListCmd.Flags().String("order", "", "asc|desc")
	schemasListCmd.Flags().Int("page", 1, "page number")
	schemasListCmd.Flags().Int("per-page", store.DefaultPerPage, "schemas per page")
	schemasCmd.AddCommand(schemasListCmd)
}
