package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for seggy.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seggy",
		Short: "Financial due-diligence reports from document sets",
		Long: `seggy analyzes financial documents and produces a due-diligence report.

Documents are split into batches, each batch is analyzed by the first
language-model backend that returns a concrete, figure-bearing answer, and
the batch analyses are synthesized into a single report with charts.

The API key is read from SEGGY_API_KEY or OPENROUTER_API_KEY. Backends,
tiers and limits are configured in .seggy.yaml (see 'seggy init').`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
