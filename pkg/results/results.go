// Package results loads, filters, and analyzes saved scoring results, and
// validates a batch against the naming convention that encodes expected
// outcomes in test names.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tracecheck/tracecheck/pkg/eval"
)

// Stats holds computed statistics from a batch of case results.
type Stats struct {
	ResultsFile  string  `json:"resultsFile"`
	CasesTotal   int     `json:"casesTotal"`
	CasesScored  int     `json:"casesScored"`
	Passed       int     `json:"passed"`
	Partial      int     `json:"partial"`
	Failed       int     `json:"failed"`
	Unscored     int     `json:"unscored"`
	AverageScore float64 `json:"averageScore"`
	PassRate     float64 `json:"passRate"`

	// ByCategory averages numeric scores per test category.
	ByCategory map[string]CategoryStats `json:"byCategory,omitempty"`
}

// CategoryStats aggregates one category's scored cases.
type CategoryStats struct {
	Cases        int     `json:"cases"`
	AverageScore float64 `json:"averageScore"`
}

// Load reads a JSON results file and returns the parsed case results.
func Load(path string) ([]*eval.CaseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}

	var results []*eval.CaseResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to parse results JSON: %w", err)
	}

	return results, nil
}

// Save writes case results as indented JSON, overwriting any existing file.
func Save(path string, results []*eval.CaseResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}

	return nil
}

// Filter returns the subset of results whose case names contain the filter
// substring.
func Filter(results []*eval.CaseResult, filter string) []*eval.CaseResult {
	if filter == "" {
		return results
	}

	filter = strings.ToLower(filter)
	filtered := make([]*eval.CaseResult, 0, len(results))
	for _, r := range results {
		if strings.Contains(strings.ToLower(r.Name), filter) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// CalculateStats computes batch statistics from case results.
func CalculateStats(resultsFile string, results []*eval.CaseResult) Stats {
	stats := Stats{
		ResultsFile: resultsFile,
		CasesTotal:  len(results),
	}

	var sum float64
	byCategory := map[string]*categoryAccumulator{}
	for _, result := range results {
		if !result.Scored() {
			stats.Unscored++
			continue
		}

		stats.CasesScored++
		sum += result.Score.Value
		switch result.Score.Categorical {
		case "passed":
			stats.Passed++
		case "partial":
			stats.Partial++
		default:
			stats.Failed++
		}

		if result.Category != "" {
			acc, ok := byCategory[result.Category]
			if !ok {
				acc = &categoryAccumulator{}
				byCategory[result.Category] = acc
			}
			acc.cases++
			acc.sum += result.Score.Value
		}
	}

	if stats.CasesScored > 0 {
		stats.AverageScore = sum / float64(stats.CasesScored)
		stats.PassRate = float64(stats.Passed) / float64(stats.CasesScored)
	}
	if len(byCategory) > 0 {
		stats.ByCategory = map[string]CategoryStats{}
		for category, acc := range byCategory {
			stats.ByCategory[category] = CategoryStats{
				Cases:        acc.cases,
				AverageScore: acc.sum / float64(acc.cases),
			}
		}
	}

	return stats
}

type categoryAccumulator struct {
	cases int
	sum   float64
}
