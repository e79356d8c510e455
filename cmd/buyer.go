package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var buyerCmd = &cobra.Command{
	Use:   "buyer",
	Short: "Manage buyer records",
}

var buyerDeleteCmd = &cobra.Command{
	Use:   "delete <buyer-id>",
	Short: "Delete a buyer and its dependents",
	Long: `Removes the buyer together with its matches, contacts, and transcripts
in one transaction. Use dedupe for records that represent the same company;
delete is for buyers that should not exist at all.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("dedupe"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if err := st.DeleteBuyer(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted buyer %s\n", args[0])
		return nil
	},
}

func init() {
	buyerCmd.AddCommand(buyerDeleteCmd)
	rootCmd.AddCommand(buyerCmd)
}
