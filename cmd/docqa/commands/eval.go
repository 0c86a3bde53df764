package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/docqa-go/internal/evaluation"
)

// NewEvalCmd constructs `docqa eval`, which scores the workflow against a
// question set with known answers.
func NewEvalCmd() *cobra.Command {
	var questionsPath string
	var outPath string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate answer quality against a question set",
		Long: `Run every question of a set through the workflow and compare the retrieved
passages and answers with reference answers by embedding similarity.

Metrics (averaged over all questions that retrieved at least one passage):
  retrieval precision    share of passages similar to the question (> 0.4)
  retrieval accuracy     similarity of the joined passages to the ground truth
  contextual accuracy    similarity of the answer to the ground truth
  contextual precision   similarity of the answer to the question

A question set is YAML:

  document: Python OOP Concepts
  questions:
    - question: What is polymorphism?
      ground_truth: Polymorphism means having many forms...

Without --questions a built-in set about object-oriented programming is used.

Examples:
  docqa eval
  docqa eval --questions ./eval/oop.yaml --out ./eval/summary.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set := evaluation.DefaultSet()
			if questionsPath != "" {
				var err error
				if set, err = evaluation.LoadSet(questionsPath); err != nil {
					return err
				}
			}

			ctx, e, err := loadEnv(cmd.Context())
			if err != nil {
				return fmt.Errorf("eval: %w", err)
			}

			r, err := buildRetrieval(ctx, e)
			if err != nil {
				return fmt.Errorf("eval: %w", err)
			}
			defer r.Close()

			wf, err := buildWorkflow(ctx, e, r, nil)
			if err != nil {
				return fmt.Errorf("eval: %w", err)
			}

			rec, closeJournal := openJournal(e)
			defer closeJournal()

			ev, err := evaluation.New(wf, r.embedder, evaluation.Config{
				Concurrency: concurrency,
				Journal:     rec,
				Logger:      e.log,
			})
			if err != nil {
				return fmt.Errorf("eval: %w", err)
			}

			e.log.Info("evaluation starting", slog.Int("questions", len(set.Questions)), slog.String("document", set.Document))
			sum, err := ev.Run(ctx, set)
			if err != nil {
				return err
			}

			if err := evaluation.WriteSummary(outPath, sum); err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			fmt.Fprintf(cmd.OutOrStdout(), "\nSummary saved to: %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&questionsPath, "questions", "q", "", "YAML question set (default: built-in OOP set)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "evaluation_summary.json", "Where to write the JSON summary")
	cmd.Flags().IntVar(&concurrency, "concurrency", evaluation.DefaultConcurrency, "Questions evaluated in parallel")

	return cmd
}

func printSummary(w io.Writer, s evaluation.Summary) {
	fmt.Fprintf(w, "Evaluated %d questions (%d skipped)\n\n", s.TestQuestions, s.Skipped)
	row := func(name string, v float64) {
		fmt.Fprintf(w, "%-22s %.4f (%.2f%%)\n", name, v, v*100)
	}
	row("Retrieval Precision", s.Metrics.RetrievalPrecision)
	row("Retrieval Accuracy", s.Metrics.RetrievalAccuracy)
	row("Contextual Accuracy", s.Metrics.ContextualAccuracy)
	row("Contextual Precision", s.Metrics.ContextualPrecision)
	fmt.Fprintln(w)
	row("Overall", s.OverallScore)
	fmt.Fprintf(w, "%-22s %s\n", "Rating", s.Rating)
}
