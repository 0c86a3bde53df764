package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/docqa-go/internal/journal"
	"github.com/54b3r/docqa-go/internal/workflow"
)

// NewAskCmd constructs `docqa ask`, which runs one question through the
// workflow and prints the answer with its relevance score.
func NewAskCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the ingested documents",
		Long: `Ask one question. The passages most similar to it are retrieved, scored
for relevance, and an answer is generated only when the score is above 0.5.

Examples:
  docqa ask "What are the four pillars of OOP?"
  docqa ask --json "Explain inheritance with an example."`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("ask: question must not be empty")
			}

			ctx, e, err := loadEnv(cmd.Context())
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			r, err := buildRetrieval(ctx, e)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer r.Close()

			wf, err := buildWorkflow(ctx, e, r, nil)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			rec, closeJournal := openJournal(e)
			defer closeJournal()

			start := time.Now()
			res, runErr := wf.Run(ctx, question)
			if err := rec.Record(ctx, journal.EntryFor(journal.ChannelCLI, question, res, runErr, time.Since(start))); err != nil {
				e.log.Warn("journal write failed", slog.Any("error", err))
			}
			if runErr != nil {
				return fmt.Errorf("ask: %w", runErr)
			}

			return printAnswer(cmd.OutOrStdout(), res, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

// askOutput is the --json form of an answer.
type askOutput struct {
	Question       string   `json:"question"`
	Answer         string   `json:"answer"`
	RelevanceScore *float64 `json:"relevance_score"`
	Outcome        string   `json:"outcome"`
	Passages       int      `json:"passages"`
}

func printAnswer(w io.Writer, res workflow.Result, asJSON bool) error {
	answer := workflow.PresentAnswer(res.State)
	if asJSON {
		out := askOutput{
			Question: res.Question,
			Answer:   answer,
			Outcome:  string(res.Outcome),
			Passages: len(res.Context),
		}
		if s := res.RelevanceScore; !math.IsNaN(s) && !math.IsInf(s, 0) {
			out.RelevanceScore = &s
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	_, err := fmt.Fprintf(w, "%s\n\nrelevance: %.2f (%s, %d passages)\n",
		answer, res.RelevanceScore, res.Outcome, len(res.Context))
	return err
}
