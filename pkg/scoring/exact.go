package scoring

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// numberPattern extracts standalone numeric tokens followed by punctuation
// or end of text, so digits embedded in words ("42nd") never count. The
// last token in a string is taken as its answer, since models tend to
// restate the question's numbers first.
var numberPattern = regexp.MustCompile(`\b(-?\d+\.?\d*)\b(?:[.,!?\s]|$)`)

// ExactMatch succeeds when the expected string appears in the response after
// case and whitespace normalization, or when the last numeric token of each
// side matches.
type ExactMatch struct{}

var _ Strategy = &ExactMatch{}

func (s *ExactMatch) Name() string {
	return MethodExactMatch
}

func (s *ExactMatch) Score(_ context.Context, response string, p Params) (float64, string) {
	responseClean := strings.ToLower(strings.TrimSpace(response))
	expectedClean := strings.ToLower(strings.TrimSpace(p.Expected))

	// An empty expectation is contained in any response and scores 1.0.
	if strings.Contains(responseClean, expectedClean) {
		return 1.0, "Exact match found in response"
	}

	responseNum := lastNumber(response)
	expectedNum := lastNumber(p.Expected)
	if responseNum != "" && expectedNum != "" && responseNum == expectedNum {
		return 1.0, fmt.Sprintf("Numeric match: %s == %s", responseNum, expectedNum)
	}

	return 0.0, fmt.Sprintf("No match. Expected '%s' but response was '%s'", p.Expected, truncate(response, 100))
}

func lastNumber(s string) string {
	matches := numberPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1][1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
