package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmax-ai/schemabuilder/pkg/blob"
	"github.com/rmax-ai/schemabuilder/pkg/source"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect archived vocabulary documents",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived documents, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			return fmt.Errorf("--dir is required")
		}

		keys, err := blob.NewLocalBlobStore(dir).List(cmd.Context(), source.ArchivePrefix)
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		return nil
	},
}

func init() {
	archiveListCmd.Flags().String("dir", "", "archive directory")
	archiveCmd.AddCommand(archiveListCmd)
}
