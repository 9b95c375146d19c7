package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rmax-ai/schemabuilder/pkg/engine"
	"github.com/rmax-ai/schemabuilder/pkg/graph"
	"github.com/rmax-ai/schemabuilder/pkg/source"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build patterns from a local JSON-LD file",
	Long: `Build the pattern map from a local vocabulary document without touching
any database, and print a summary. With --id, print that entry instead.

Examples:
  schemabuilder build -f schemaorg-current-https.jsonld
  schemabuilder build -f schemaorg-current-https.jsonld --id schema:Event`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		id, _ := cmd.Flags().GetString("id")
		profile, _ := cmd.Flags().GetString("profile")
		if file == "" {
			return fmt.Errorf("input file is required, use -f flag")
		}

		vocab := graph.SchemaOrg
		if profile != "" {
			v, err := engine.LoadProfile(profile)
			if err != nil {
				return err
			}
			vocab = *v
		}

		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", file, err)
		}
		defer f.Close()

		nodes, err := source.ReadDocument(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		proj := graph.NewProjection()
		proj.Set(vocab.Build(nodes))

		var out any = proj.Summary()
		if id != "" {
			entry, ok := proj.Lookup(id)
			if !ok {
				return fmt.Errorf("no entry for %s", id)
			}
			out = entry
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	buildCmd.Flags().StringP("file", "f", "", "JSON-LD vocabulary document")
	buildCmd.Flags().String("id", "", "print the entry for this id")
	buildCmd.Flags().String("profile", "", "YAML vocabulary profile")
}
