package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/dealflow/internal/model"
)

var extractCmd = &cobra.Command{
	Use:   "extract <buyer-id> <source.txt>",
	Short: "Extract profile fields from source text",
	Long: `Runs the extraction oracle over a source document (call transcript,
meeting notes, or scraped website copy) and applies the extracted fields to
the buyer through the provenance-aware merge. Transcripts are stored against
the buyer before extraction so the raw source survives merges.

--source sets the provenance tier: transcript, notes, website, csv, or manual.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("enrich"); err != nil {
			return err
		}

		buyerID := args[0]
		body, err := os.ReadFile(args[1])
		if err != nil {
			return eris.Wrapf(err, "extract: read %s", args[1])
		}

		sourceFlag, _ := cmd.Flags().GetString("source")
		source := model.FieldSource(sourceFlag)
		if !source.Valid() {
			return eris.Errorf("extract: unknown source %q", sourceFlag)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if source == model.SourceTranscript {
			title, _ := cmd.Flags().GetString("title")
			tr := &model.Transcript{
				BuyerID:    buyerID,
				Title:      title,
				Body:       string(body),
				RecordedAt: time.Now().UTC(),
			}
			if err := st.CreateTranscript(ctx, tr); err != nil {
				return err
			}
		}

		o, err := initOracle()
		if err != nil {
			return err
		}
		res, err := o.Extract(ctx, string(body), source)
		if err != nil {
			return err
		}
		if len(res.Fields) == 0 {
			fmt.Fprintln(os.Stderr, "No fields extracted.")
			return nil
		}

		session, err := initSession(st)
		if err != nil {
			return err
		}
		merged, err := session.EnrichBuyer(ctx, buyerID, res.Fields, source, time.Now().UTC())
		if err != nil {
			return err
		}

		fmt.Printf("applied: %s\n", strings.Join(merged.Applied, ", "))
		for _, s := range merged.Skipped {
			fmt.Printf("skipped %s: %s\n", s.Field, s.Reason)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().String("source", string(model.SourceTranscript), "provenance tier of the source text")
	extractCmd.Flags().String("title", "", "transcript title")
	rootCmd.AddCommand(extractCmd)
}
