package results

import (
	"strings"

	"github.com/tracecheck/tracecheck/pkg/eval"
)

// Suffixes that encode a case's expected outcome in its name.
const (
	suffixCorrect = "_correct"
	suffixWrong   = "_wrong"
)

// passThreshold is the numeric score at which a case counts as passed. It
// matches the boundary the categorical "passed" label uses.
const passThreshold = 0.8

// Outcome is the validation verdict for one case.
type Outcome struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`

	// ExpectPass is the expectation decoded from the name suffix. Nil
	// when the name carries no expectation.
	ExpectPass *bool `json:"expectPass,omitempty"`

	Scored bool    `json:"scored"`
	Score  float64 `json:"score"`

	// Mismatch is set when the observed score contradicts the
	// expectation, or when an expected case produced no score at all.
	Mismatch bool   `json:"mismatch"`
	Reason   string `json:"reason,omitempty"`
}

// Report summarizes a validation pass over a batch.
type Report struct {
	Outcomes   []Outcome `json:"outcomes"`
	Expected   int       `json:"expected"`
	Mismatches int       `json:"mismatches"`
}

// Clean reports whether every expectation held.
func (r *Report) Clean() bool {
	return r.Mismatches == 0
}

// ExpectedPass decodes the expectation from a case name. The second return
// is false when the name carries neither suffix.
func ExpectedPass(name string) (bool, bool) {
	switch {
	case strings.HasSuffix(name, suffixCorrect):
		return true, true
	case strings.HasSuffix(name, suffixWrong):
		return false, true
	default:
		return false, false
	}
}

// Validate checks every case result against its name-encoded expectation:
// "_correct" cases must score at or above the pass threshold, "_wrong"
// cases below it. Cases without a suffix are recorded but never mismatch.
// Cleanly submitted cases are promoted to the validated status; degraded
// terminal statuses stay on the record so failure modes remain visible in
// saved results.
func Validate(results []*eval.CaseResult) *Report {
	report := &Report{Outcomes: make([]Outcome, 0, len(results))}

	for _, result := range results {
		outcome := Outcome{
			Name:     result.Name,
			Category: result.Category,
			Scored:   result.Scored(),
		}
		if result.Scored() {
			outcome.Score = result.Score.Value
		}

		if expectPass, ok := ExpectedPass(result.Name); ok {
			report.Expected++
			outcome.ExpectPass = &expectPass

			switch {
			case !result.Scored():
				outcome.Mismatch = true
				outcome.Reason = "case produced no score"
			case expectPass && outcome.Score < passThreshold:
				outcome.Mismatch = true
				outcome.Reason = "expected to pass but scored below threshold"
			case !expectPass && outcome.Score >= passThreshold:
				outcome.Mismatch = true
				outcome.Reason = "expected to fail but scored at or above threshold"
			}
		}

		if outcome.Mismatch {
			report.Mismatches++
		}
		if result.Status == eval.StatusSubmitted {
			result.Status = eval.StatusValidated
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	return report
}
