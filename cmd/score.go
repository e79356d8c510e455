package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/dealflow/internal/score"
)

var scoreCmd = &cobra.Command{
	Use:   "score <deal-id>",
	Short: "Score every buyer against a deal",
	Long: `Runs the scoring oracle for each buyer against the given deal and prints
the ranked match list. Existing decisions (approved, passed, interest) are
preserved; only the score fields are refreshed.

Oracle failures for individual buyers degrade that buyer to a neutral
composite instead of failing the run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("score"); err != nil {
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

		session, err := initSession(st)
		if err != nil {
			return err
		}

		ranked, err := session.ScoreDeal(ctx, args[0])
		if err != nil {
			return err
		}
		if len(ranked) == 0 {
			fmt.Fprintln(os.Stderr, "No buyers to score.")
			return nil
		}

		formatRanked(os.Stdout, ranked)
		return nil
	},
}

func formatRanked(out io.Writer, ranked []score.RankedMatch) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RANK\tBUYER\tCOMPOSITE\tTIER\tSTATUS\tDISQUALIFIED")
	for i, r := range ranked {
		dq := ""
		if r.Match.Disqualified {
			dq = strings.Join(r.Match.DisqualifyReasons, "; ")
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%.1f\t%s\t%s\t%s\n",
			i+1, r.BuyerName, r.Match.CompositeScore, r.Match.Completeness, r.Match.Status, dq)
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}
