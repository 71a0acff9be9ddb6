// Package cli provides the tracecheck command line interface.
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tracecheck/tracecheck/pkg/results"
)

// NewVerifyCmd creates the verify command
func NewVerifyCmd() *cobra.Command {
	var scoreThreshold float64
	var passRateThreshold float64
	var checkExpectations bool

	cmd := &cobra.Command{
		Use:   "verify <results-file>",
		Short: "Verify scoring results meet thresholds",
		Long: `Verify that saved scoring results meet minimum thresholds.

Exits with code 0 if all thresholds are met, code 1 otherwise.
Use 'tracecheck view' to inspect detailed results.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			resultsFile := args[0]

			caseResults, err := results.Load(resultsFile)
			if err != nil {
				return fmt.Errorf("failed to load results file: %w", err)
			}

			stats := results.CalculateStats(resultsFile, caseResults)
			report := results.Validate(caseResults)

			scoreMet := stats.AverageScore >= scoreThreshold
			passRateMet := stats.PassRate >= passRateThreshold
			expectationsMet := !checkExpectations || report.Clean()
			passed := scoreMet && passRateMet && expectationsMet

			outputVerifyResults(stats, report, verifyThresholds{
				score:             scoreThreshold,
				passRate:          passRateThreshold,
				checkExpectations: checkExpectations,
				scoreMet:          scoreMet,
				passRateMet:       passRateMet,
				expectationsMet:   expectationsMet,
				passed:            passed,
			})

			if !passed {
				// silent error (SilenceErrors: true), sets exit code 1
				return fmt.Errorf("thresholds not met")
			}

			return nil
		},
	}

	cmd.Flags().Float64Var(&scoreThreshold, "score", 0.0, "Minimum average score (0.0-1.0)")
	cmd.Flags().Float64Var(&passRateThreshold, "pass-rate", 0.0, "Minimum pass rate over scored cases (0.0-1.0)")
	cmd.Flags().BoolVar(&checkExpectations, "expectations", false, "Require every name-encoded expectation to hold")

	return cmd
}

type verifyThresholds struct {
	score             float64
	passRate          float64
	checkExpectations bool
	scoreMet          bool
	passRateMet       bool
	expectationsMet   bool
	passed            bool
}

func outputVerifyResults(stats results.Stats, report *results.Report, t verifyThresholds) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	bold := color.New(color.Bold)

	_, _ = bold.Println("=== Threshold Verification ===")
	fmt.Println()

	if t.scoreMet {
		_, _ = green.Printf("Average Score: %.2f >= %.2f ✓\n", stats.AverageScore, t.score)
	} else {
		_, _ = red.Printf("Average Score: %.2f < %.2f ✗\n", stats.AverageScore, t.score)
	}

	if t.passRateMet {
		_, _ = green.Printf("Pass Rate:     %.2f%% >= %.2f%% ✓\n",
			stats.PassRate*100, t.passRate*100)
	} else {
		_, _ = red.Printf("Pass Rate:     %.2f%% < %.2f%% ✗\n",
			stats.PassRate*100, t.passRate*100)
	}

	if t.checkExpectations {
		if t.expectationsMet {
			_, _ = green.Printf("Expectations:  %d/%d held ✓\n",
				report.Expected-report.Mismatches, report.Expected)
		} else {
			_, _ = red.Printf("Expectations:  %d/%d violated ✗\n",
				report.Mismatches, report.Expected)
			for _, outcome := range report.Outcomes {
				if outcome.Mismatch {
					fmt.Printf("  %s: %s\n", outcome.Name, outcome.Reason)
				}
			}
		}
	}

	fmt.Println()
	if t.passed {
		_, _ = green.Println("Result: PASSED")
	} else {
		_, _ = red.Println("Result: FAILED")
	}
}
