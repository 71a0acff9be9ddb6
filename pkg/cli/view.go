package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tracecheck/tracecheck/pkg/eval"
	"github.com/tracecheck/tracecheck/pkg/results"
)

const defaultMaxResponseLength = 200

// NewViewCmd creates the view command for rendering saved results.
func NewViewCmd() *cobra.Command {
	var (
		caseFilter        string
		showResponses     bool
		maxResponseLength = defaultMaxResponseLength
	)

	cmd := &cobra.Command{
		Use:   "view <results-file>",
		Short: "Pretty-print scoring results from a JSON file",
		Long: `Render the JSON output produced by "tracecheck run" in a human-friendly
format.

Examples:
  tracecheck view tracecheck-capitals-out.json
  tracecheck view --case paris --responses tracecheck-capitals-out.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caseResults, err := results.Load(args[0])
			if err != nil {
				return err
			}

			filtered := results.Filter(caseResults, caseFilter)
			if len(filtered) == 0 {
				if caseFilter == "" {
					return errors.New("no cases found in results")
				}
				return fmt.Errorf("no cases matched filter %q", caseFilter)
			}

			for idx, result := range filtered {
				if idx > 0 {
					fmt.Println()
				}
				printCaseResult(result, viewOptions{
					showResponses:     showResponses,
					maxResponseLength: maxResponseLength,
				})
			}

			fmt.Println()
			printStatsSummary(args[0], filtered)

			return nil
		},
	}

	cmd.Flags().StringVar(&caseFilter, "case", "", "Only show results for cases whose name contains this value")
	cmd.Flags().BoolVar(&showResponses, "responses", false, "Include the model response for each case")
	cmd.Flags().IntVar(&maxResponseLength, "max-response-length", maxResponseLength, "Maximum characters of each response to display (0 = unlimited)")

	return cmd
}

type viewOptions struct {
	showResponses     bool
	maxResponseLength int
}

func printCaseResult(result *eval.CaseResult, opts viewOptions) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	bold.Printf("Case: %s\n", result.Name)
	if result.Category != "" {
		fmt.Printf("  Category: %s\n", result.Category)
	}
	fmt.Printf("  Method: %s\n", result.Method)
	fmt.Printf("  Session: %s\n", result.SessionID)

	switch result.Status {
	case eval.StatusSubmitted, eval.StatusValidated:
		if result.Scored() {
			statusColor := green
			if result.Score.Categorical != "passed" {
				statusColor = yellow
			}
			statusColor.Printf("  Score: %.2f (%s)\n", result.Score.Value, result.Score.Categorical)
			fmt.Printf("  Reasoning: %s\n", result.Score.Reasoning)
		} else {
			red.Printf("  Score: none\n")
			fmt.Printf("  Error: %s\n", firstError(result))
		}

	case eval.StatusSubmitFailed:
		yellow.Printf("  Score: %.2f (%s), write failed\n", result.Score.Value, result.Score.Categorical)
		fmt.Printf("  Error: %s\n", result.SubmitError)

	default:
		red.Printf("  Score: none (%s)\n", result.Status)
		fmt.Printf("  Error: %s\n", firstError(result))
	}

	if result.TraceID != "" {
		fmt.Printf("  Trace: %s (found after %d attempts)\n", result.TraceID, result.LocateAttempts)
	}
	if result.LatencyMs > 0 {
		fmt.Printf("  Latency: %dms, tokens: %d in / %d out\n",
			result.LatencyMs, result.Usage.InputTokens, result.Usage.OutputTokens)
	}

	if opts.showResponses && result.Response != "" {
		response := result.Response
		if opts.maxResponseLength > 0 && len(response) > opts.maxResponseLength {
			response = response[:opts.maxResponseLength] + "..."
		}
		fmt.Printf("  Response: %s\n", response)
	}
}

func firstError(result *eval.CaseResult) string {
	switch {
	case result.ExecError != "":
		return result.ExecError
	case result.LocateError != "":
		return result.LocateError
	case result.SubmitError != "":
		return result.SubmitError
	default:
		return "(none recorded)"
	}
}

func printStatsSummary(path string, caseResults []*eval.CaseResult) {
	bold := color.New(color.Bold)
	stats := results.CalculateStats(path, caseResults)

	bold.Println("=== Summary ===")
	fmt.Printf("Cases: %d, scored: %d, unscored: %d\n",
		stats.CasesTotal, stats.CasesScored, stats.Unscored)
	fmt.Printf("Passed: %d, partial: %d, failed: %d\n",
		stats.Passed, stats.Partial, stats.Failed)
	fmt.Printf("Average Score: %.2f\n", stats.AverageScore)
}
