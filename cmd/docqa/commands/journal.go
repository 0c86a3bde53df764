package commands

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/docqa-go/internal/journal"
)

// NewJournalCmd constructs `docqa journal` and its read-only subcommands.
func NewJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the question journal",
		Long: `Every question asked through the CLI, the HTTP API or an evaluation run is
appended to a local SQLite journal (DOCQA_JOURNAL_DB, default
~/.docqa/journal.db). These commands read it.`,
	}
	cmd.AddCommand(newJournalRecentCmd(), newJournalSummaryCmd())
	return cmd
}

func newJournalRecentCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recent questions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, e, err := loadEnv(cmd.Context())
			if err != nil {
				return fmt.Errorf("journal: %w", err)
			}
			store, err := requireJournal(e)
			if err != nil {
				return fmt.Errorf("journal: %w", err)
			}
			defer store.Close()

			entries, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")

	return cmd
}

func newJournalSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show outcome counts and the mean relevance score",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, e, err := loadEnv(cmd.Context())
			if err != nil {
				return fmt.Errorf("journal: %w", err)
			}
			store, err := requireJournal(e)
			if err != nil {
				return fmt.Errorf("journal: %w", err)
			}
			defer store.Close()

			sum, err := store.Summarize(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "answered: %d\nended:    %d\nerrors:   %d\n", sum.Answered, sum.Ended, sum.Errors)
			fmt.Fprintf(w, "mean relevance score: %s\n", formatScore(sum.MeanScore))
			return nil
		},
	}
}

func printEntries(w io.Writer, entries []journal.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCHANNEL\tOUTCOME\tSCORE\tPASSAGES\tLATENCY\tQUESTION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime),
			e.Channel,
			e.Outcome,
			formatScore(e.Score),
			e.Passages,
			e.Latency.Round(time.Millisecond),
			truncateQuestion(e.Question, 60),
		)
	}
	return tw.Flush()
}

func formatScore(s float64) string {
	if math.IsNaN(s) {
		return "-"
	}
	return fmt.Sprintf("%.2f", s)
}

func truncateQuestion(q string, n int) string {
	r := []rune(q)
	if len(r) <= n {
		return q
	}
	return string(r[:n-1]) + "…"
}
