package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/dealflow/internal/enrich"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <items.json>",
	Short: "Apply extracted field patches in bulk",
	Long: `Reads a JSON array of enrichment items and applies each patch through the
provenance-aware merge. A checkpoint keyed by --operation and --collection is
written after every item, so re-running the same operation resumes where it
stopped. Items are paced by the configured inter-item delay.

Each item is {"record_id": ..., "patch": {...}, "source": ..., "extracted_at": ...}.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("enrich"); err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "enrich: read %s", args[0])
		}
		var items []enrich.Item
		if err := json.Unmarshal(data, &items); err != nil {
			return eris.Wrapf(err, "enrich: parse %s", args[0])
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		session, err := initSession(st)
		if err != nil {
			return err
		}

		target, _ := cmd.Flags().GetString("target")
		apply := session.EnrichBuyer
		if target == "deal" {
			apply = session.EnrichDeal
		} else if target != "buyer" {
			return eris.Errorf("enrich: unknown target %q (want buyer or deal)", target)
		}

		operationID, _ := cmd.Flags().GetString("operation")
		collectionID, _ := cmd.Flags().GetString("collection")
		delay := time.Duration(cfg.Enrich.ItemDelayMillis) * time.Millisecond

		runner := enrich.NewRunner(st, apply, delay)
		tally, err := runner.Run(ctx, operationID, collectionID, items)
		if tally != nil {
			fmt.Printf("succeeded: %d, failed: %d, skipped: %d\n",
				tally.Succeeded, tally.Failed, tally.Skipped)
		}
		return err
	},
}

func init() {
	f := enrichCmd.Flags()
	f.String("operation", "", "bulk operation id for checkpointing")
	f.String("collection", "", "collection id the items belong to")
	f.String("target", "buyer", "record type the patches apply to (buyer or deal)")
	_ = enrichCmd.MarkFlagRequired("operation")
	_ = enrichCmd.MarkFlagRequired("collection")
	rootCmd.AddCommand(enrichCmd)
}
