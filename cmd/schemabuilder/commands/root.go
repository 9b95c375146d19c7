// Package commands implements the schemabuilder CLI commands.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rmax-ai/schemabuilder/pkg/logger"
	"github.com/rmax-ai/schemabuilder/pkg/store"
)

var (
	dbPath  string
	logMode string
)

var rootCmd = &cobra.Command{
	Use:   "schemabuilder",
	Short: "Materialize the schema.org vocabulary into a schema store",
	Long: `schemabuilder fetches the schema.org JSON-LD vocabulary, builds one
pattern per class and stores the classes as schemas and their properties as
shared terms.

The database defaults to $SCHEMABUILDER_DB_PATH, or ./schemabuilder.db.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaultDB := os.Getenv("SCHEMABUILDER_DB_PATH")
	if defaultDB == "" {
		defaultDB = "schemabuilder.db"
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&logMode, "log-mode", "dev", "log output: prod|dev")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(guardCmd)
	rootCmd.AddCommand(schemasCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(archiveCmd)
}

func openStore() (*store.Store, error) {
	st, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dbPath, err)
	}
	return st, nil
}

func newLogger() (*logger.Logger, error) {
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return log.Named("schemabuilder"), nil
}
