package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tracecheck/tracecheck/pkg/eval"
	"github.com/tracecheck/tracecheck/pkg/results"
)

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	var outputFormat string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run [batch-spec-file]",
		Short: "Run a scoring batch",
		Long:  `Run a scoring batch using the specified batch spec file.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specFile := args[0]

			spec, err := eval.FromFile(specFile)
			if err != nil {
				return fmt.Errorf("failed to load batch spec: %w", err)
			}

			runner := eval.NewRunner(spec)
			display := newProgressDisplay(verbose)

			ctx := context.Background()
			caseResults, err := runner.RunWithProgress(ctx, display.handleProgress)
			if err != nil {
				return fmt.Errorf("batch failed: %w", err)
			}

			// Validate before saving so the file records final statuses.
			report := results.Validate(caseResults)

			outputFile := fmt.Sprintf("tracecheck-%s-out.json", spec.Metadata.Name)
			if err := results.Save(outputFile, caseResults); err != nil {
				return fmt.Errorf("failed to save results to file: %w", err)
			}
			fmt.Printf("\nResults saved to: %s\n", outputFile)

			if err := displayResults(caseResults, report, runner.SubmissionTally(), outputFormat); err != nil {
				return fmt.Errorf("failed to display results: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, json)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	return cmd
}

// progressDisplay handles interactive progress display
type progressDisplay struct {
	verbose bool
	green   *color.Color
	red     *color.Color
	yellow  *color.Color
	cyan    *color.Color
	bold    *color.Color
}

func newProgressDisplay(verbose bool) *progressDisplay {
	return &progressDisplay{
		verbose: verbose,
		green:   color.New(color.FgGreen),
		red:     color.New(color.FgRed),
		yellow:  color.New(color.FgYellow),
		cyan:    color.New(color.FgCyan),
		bold:    color.New(color.Bold),
	}
}

func (d *progressDisplay) handleProgress(event eval.ProgressEvent) {
	switch event.Type {
	case eval.EventBatchStart:
		d.bold.Println("\n=== Starting Scoring Batch ===")
		if event.Message != "" {
			fmt.Println(event.Message)
		}

	case eval.EventCaseStart:
		fmt.Println()
		d.cyan.Printf("Case: %s\n", event.Case.Name)
		if event.Case.Category != "" {
			fmt.Printf("  Category: %s\n", event.Case.Category)
		}

	case eval.EventCaseExecuting:
		fmt.Printf("  → Calling model...\n")

	case eval.EventCaseLocating:
		fmt.Printf("  → Locating trace...\n")

	case eval.EventCaseScoring:
		if d.verbose {
			fmt.Printf("  → Scoring response...\n")
		}

	case eval.EventCaseSubmit:
		if d.verbose {
			fmt.Printf("  → Submitting scores...\n")
		}

	case eval.EventCaseComplete:
		d.printCaseOutcome(event.Case)

	case eval.EventBatchComplete:
		fmt.Println()
		d.bold.Println("=== Batch Complete ===")
		if event.Message != "" {
			fmt.Println(event.Message)
		}
	}
}

func (d *progressDisplay) printCaseOutcome(result *eval.CaseResult) {
	switch result.Status {
	case eval.StatusSubmitted:
		d.green.Printf("  ✓ %s scored %.2f (%s), attempts: %d\n",
			result.Score.Name, result.Score.Value, result.Score.Categorical, result.LocateAttempts)

	case eval.StatusSubmitFailed:
		d.yellow.Printf("  ~ Scored %.2f but score write failed\n", result.Score.Value)
		fmt.Printf("    Error: %s\n", result.SubmitError)

	case eval.StatusUnlocatable:
		d.red.Printf("  ✗ Trace never appeared after %d attempts\n", result.LocateAttempts)
		if d.verbose {
			fmt.Printf("    Error: %s\n", result.LocateError)
		}

	case eval.StatusUnscorable:
		d.red.Printf("  ✗ Model call failed\n")
		fmt.Printf("    Error: %s\n", result.ExecError)

	default:
		d.red.Printf("  ✗ Case ended in status %s\n", result.Status)
	}
}

func displayResults(caseResults []*eval.CaseResult, report *results.Report, tally eval.Tally, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(caseResults)

	case "text":
		displayTextResults(caseResults, report, tally)
		return nil

	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func displayTextResults(caseResults []*eval.CaseResult, report *results.Report, tally eval.Tally) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	bold := color.New(color.Bold)

	stats := results.CalculateStats("", caseResults)

	fmt.Println()
	bold.Println("=== Results Summary ===")
	fmt.Printf("Total Cases: %d\n", stats.CasesTotal)
	fmt.Printf("Scored: %d (passed %d, partial %d, failed %d)\n",
		stats.CasesScored, stats.Passed, stats.Partial, stats.Failed)
	if stats.Unscored > 0 {
		red.Printf("Unscored: %d\n", stats.Unscored)
	}
	fmt.Printf("Average Score: %.2f\n", stats.AverageScore)
	fmt.Printf("Scores Written: %d (failed %d)\n", tally.Sent, tally.Failed)

	if len(stats.ByCategory) > 0 {
		fmt.Println()
		bold.Println("=== By Category ===")
		for category, categoryStats := range stats.ByCategory {
			fmt.Printf("%s: %d cases, average %.2f\n",
				category, categoryStats.Cases, categoryStats.AverageScore)
		}
	}

	if report.Expected > 0 {
		fmt.Println()
		bold.Println("=== Expectation Check ===")
		if report.Clean() {
			green.Printf("All %d expectations held\n", report.Expected)
		} else {
			red.Printf("%d of %d expectations violated:\n", report.Mismatches, report.Expected)
			for _, outcome := range report.Outcomes {
				if outcome.Mismatch {
					fmt.Printf("  %s: %s (score %.2f)\n", outcome.Name, outcome.Reason, outcome.Score)
				}
			}
		}
	}
}
