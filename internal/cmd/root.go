package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for foreman
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "foreman",
		Short: "Autonomous task execution orchestrator",
		Long: `Foreman drives a coding engine CLI through a full task lifecycle:
it plans the work, iterates until the engine signals completion, runs a
validation pass, and reports a structured result.

Tasks are given inline with --description or as markdown task files with
optional YAML frontmatter.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
