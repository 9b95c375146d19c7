package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmax-ai/schemabuilder/pkg/blob"
	"github.com/rmax-ai/schemabuilder/pkg/cache"
	"github.com/rmax-ai/schemabuilder/pkg/engine"
	"github.com/rmax-ai/schemabuilder/pkg/graph"
	"github.com/rmax-ai/schemabuilder/pkg/source"
	"github.com/rmax-ai/schemabuilder/pkg/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one pipeline cycle",
	Long: `Fetch the vocabulary, build patterns and materialize them into the
database, then print the run report as JSON.

A set run guard makes the cycle a no-op. Use --force to clear it first.

Examples:
  schemabuilder run
  schemabuilder run --file schemaorg-current-https.jsonld
  schemabuilder run --cache badger --cache-dir .cache --archive-dir archive`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		sourceURL, _ := flags.GetString("source-url")
		file, _ := flags.GetString("file")
		cacheKind, _ := flags.GetString("cache")
		cacheDir, _ := flags.GetString("cache-dir")
		archiveDir, _ := flags.GetString("archive-dir")
		profile, _ := flags.GetString("profile")
		force, _ := flags.GetBool("force")

		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		vocab := graph.SchemaOrg
		if profile != "" {
			v, err := engine.LoadProfile(profile)
			if err != nil {
				return err
			}
			vocab = *v
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		guard := st.Guard(store.GuardInsertedSchemas)
		if force {
			if err := guard.Clear(cmd.Context()); err != nil {
				return err
			}
		}

		var src engine.GraphSource
		if file != "" {
			src = source.NewFileSource(file)
		} else {
			opts := source.Options{URL: sourceURL, Logger: log}
			switch cacheKind {
			case "memory":
				opts.Cache = cache.NewMemory()
			case "badger":
				if cacheDir == "" {
					return fmt.Errorf("--cache badger requires --cache-dir")
				}
				bc, err := cache.NewBadger(cache.BadgerOptions{Dir: cacheDir, Logger: log})
				if err != nil {
					return fmt.Errorf("failed to open cache: %w", err)
				}
				defer bc.Close()
				opts.Cache = bc
			default:
				return fmt.Errorf("unsupported cache: %s", cacheKind)
			}
			if archiveDir != "" {
				opts.Archive = blob.NewLocalBlobStore(archiveDir)
			}
			src = source.NewFetcher(opts)
		}

		pipeline := engine.NewPipeline(src, vocab, engine.NewMaterializer(st, guard, log), nil, log)
		report, runErr := pipeline.Run(cmd.Context())

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		return runErr
	},
}

func init() {
	runCmd.Flags().String("source-url", source.DefaultURL, "vocabulary JSON-LD document URL")
	runCmd.Flags().StringP("file", "f", "", "read the vocabulary from a local JSON-LD file instead")
	runCmd.Flags().String("cache", "memory", "graph cache: memory|badger")
	runCmd.Flags().String("cache-dir", "", "badger cache directory")
	runCmd.Flags().String("archive-dir", "", "directory for archived graph documents")
	runCmd.Flags().String("profile", "", "YAML vocabulary profile")
	runCmd.Flags().Bool("force", false, "clear the run guard before running")
}
