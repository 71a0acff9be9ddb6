package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root tracecheck command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tracecheck",
		Short: "Trace-correlated scoring for generative model endpoints",
		Long: `tracecheck runs test cases against a generative model endpoint, correlates
each execution with its record in the trace store, scores the responses, and
writes the scores back against the matching traces.`,
	}

	// Add subcommands
	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewViewCmd())
	rootCmd.AddCommand(NewVerifyCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
