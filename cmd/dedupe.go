package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/dealflow/internal/dedupe"
	"github.com/sells-group/dealflow/internal/model"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Find and merge duplicate buyer records",
	Long: `Groups buyers by normalized website domain, falling back to normalized
company name, and proposes a keeper per group. Without --execute the groups
are printed for review; with --execute each group is merged atomically.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
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

		buyers, err := st.ListBuyers(ctx)
		if err != nil {
			return eris.Wrap(err, "dedupe: list buyers")
		}

		eng := dedupe.New(st)
		groups := eng.FindGroups(buyers)
		if len(groups) == 0 {
			fmt.Fprintln(os.Stderr, "No duplicate groups found.")
			return nil
		}

		execute, _ := cmd.Flags().GetBool("execute")
		if !execute {
			formatGroups(os.Stdout, groups)
			return nil
		}

		tally, outcomes := eng.MergeAll(ctx, groups, buyers)
		for _, o := range outcomes {
			fmt.Printf("merged %s <- %s\n", o.SurvivorID, strings.Join(o.RemovedIDs, ", "))
		}
		fmt.Printf("groups merged: %d, failed: %d\n", tally.Succeeded, tally.Failed)
		return nil
	},
}

func formatGroups(out io.Writer, groups []model.DuplicateGroup) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEY\tMATCH\tKEEPER\tMEMBERS\tPROPOSED NAME")
	for _, g := range groups {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			g.Key, g.MatchType, g.KeeperID, len(g.MemberIDs), g.ProposedDisplayName)
	}
	_ = w.Flush()
}

func init() {
	dedupeCmd.Flags().Bool("execute", false, "merge duplicate groups instead of previewing them")
	rootCmd.AddCommand(dedupeCmd)
}
