package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmax-ai/schemabuilder/pkg/store"
)

var guardCmd = &cobra.Command{
	Use:   "guard",
	Short: "Inspect or reset the run guard",
	Long: `The run guard is set after a completed materialization and makes later
cycles skip all writes. Reset it to materialize again.`,
}

var guardStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print whether the run guard is set",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		set, err := st.Guard(store.GuardInsertedSchemas).IsSet(cmd.Context())
		if err != nil {
			return err
		}
		state := "clear"
		if set {
			state = "set"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", store.GuardInsertedSchemas, state)
		return nil
	},
}

var guardResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the run guard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Guard(store.GuardInsertedSchemas).Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: cleared\n", store.GuardInsertedSchemas)
		return nil
	},
}

func init() {
	guardCmd.AddCommand(guardStatusCmd)
	guardCmd.AddCommand(guardResetCmd)
}
