package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/dealflow/internal/matching"
)

// withSession runs fn against a fully wired session, handling store setup
// and teardown. Decisions share the score mode's config requirements.
func withSession(cmd *cobra.Command, fn func(*matching.Session) error) error {
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
	return fn(session)
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Record outreach decisions on buyer-deal matches",
}

var approveCmd = &cobra.Command{
	Use:   "approve <buyer-id> <deal-id>",
	Short: "Approve a match for outreach",
	Long: `Marks the match approved and selected for outreach, then kicks off
contact discovery for the buyer in the background. Passed matches cannot be
approved; a pass is final for this pairing.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *matching.Session) error {
			if err := s.Approve(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("approved buyer %s for deal %s\n", args[0], args[1])
			return nil
		})
	},
}

var passCmd = &cobra.Command{
	Use:   "pass <buyer-id> <deal-id>",
	Short: "Pass on a match",
	Long: `Marks the match passed and removes it from outreach. A category and
reason are required; notes are optional. A pass is final for outreach:
re-scoring refreshes the score fields but leaves the pass in place.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		reason, _ := cmd.Flags().GetString("reason")
		notes, _ := cmd.Flags().GetString("notes")
		return withSession(cmd, func(s *matching.Session) error {
			if err := s.Pass(cmd.Context(), args[0], args[1], category, reason, notes); err != nil {
				return err
			}
			fmt.Printf("passed on buyer %s for deal %s\n", args[0], args[1])
			return nil
		})
	},
}

var interestCmd = &cobra.Command{
	Use:   "interest <buyer-id> <deal-id>",
	Short: "Record buyer interest",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		interested, _ := cmd.Flags().GetBool("interested")
		return withSession(cmd, func(s *matching.Session) error {
			if err := s.SetInterested(cmd.Context(), args[0], args[1], interested); err != nil {
				return err
			}
			fmt.Printf("recorded interest=%t for buyer %s on deal %s\n", interested, args[0], args[1])
			return nil
		})
	},
}

func init() {
	passCmd.Flags().String("category", "", "pass category (e.g. size, geography, sector)")
	passCmd.Flags().String("reason", "", "why the buyer is passing")
	passCmd.Flags().String("notes", "", "free-form notes")
	_ = passCmd.MarkFlagRequired("category")
	_ = passCmd.MarkFlagRequired("reason")

	interestCmd.Flags().Bool("interested", true, "whether the buyer is interested")

	matchCmd.AddCommand(approveCmd, passCmd, interestCmd)
	rootCmd.AddCommand(matchCmd)
}
