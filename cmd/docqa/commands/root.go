// Package commands defines the Cobra command tree for the docqa binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/docqa-go/internal/audit"
	"github.com/54b3r/docqa-go/internal/config"
	"github.com/54b3r/docqa-go/internal/logging"
)

// configPath holds the --config flag value.
var configPath string

// NewRootCmd constructs the root command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docqa",
		Short: "Ask questions about your documents",
		Long: `docqa answers questions from documents you have ingested.

Each question runs a three-step workflow: the most similar passages are
retrieved from the vector store, a language model judges whether they are
relevant, and only then is an answer generated from them. Unrelated questions
get a fixed "couldn't find relevant information" reply instead of a guess.

Model, embedding and vector store settings come from environment variables
or a YAML config file (~/.docqa/config.yaml). Environment always wins.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.FromEnv()

			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}

			audit.LogCommandStart(cmd.Context(), log, cmd.CommandPath(), path)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.docqa/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewIngestCmd(),
		NewServeCmd(),
		NewEvalCmd(),
		NewJournalCmd(),
		NewVersionCmd(),
	)

	return root
}
