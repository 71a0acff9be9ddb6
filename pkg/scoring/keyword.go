package scoring

import (
	"context"
	"fmt"
	"strings"
)

// negationMarkers flag a keyword that is only mentioned to be dismissed,
// e.g. "who needs Neil Armstrong". A marker anywhere in the short window
// before the keyword disqualifies the occurrence.
var negationMarkers = []string{
	"who needs", "not", "isn't", "wasn't", "instead of", "rather than",
	"forget", "wrong", "incorrect", "false",
}

// negationWindow is how far back (in characters) to scan for a marker.
const negationWindow = 50

// KeywordMatch scores the fraction of required keywords present in the
// response in a positive context.
type KeywordMatch struct{}

var _ Strategy = &KeywordMatch{}

func (s *KeywordMatch) Name() string {
	return MethodKeywordMatch
}

func (s *KeywordMatch) Score(_ context.Context, response string, p Params) (float64, string) {
	if len(p.RequiredKeywords) == 0 {
		return 0.0, "No required keywords configured"
	}

	responseLower := strings.ToLower(response)

	var found, missing []string
	for _, keyword := range p.RequiredKeywords {
		keywordLower := strings.ToLower(keyword)

		idx := strings.Index(responseLower, keywordLower)
		if idx < 0 {
			missing = append(missing, keyword)
			continue
		}

		if negatedContext(responseLower, idx) {
			missing = append(missing, keyword)
			continue
		}

		found = append(found, keyword)
	}

	score := float64(len(found)) / float64(len(p.RequiredKeywords))

	reasoning := fmt.Sprintf("Found %d/%d keywords in positive context.", len(found), len(p.RequiredKeywords))
	if len(missing) > 0 {
		reasoning += " Missing/Negative: " + strings.Join(missing, ", ")
	}
	if len(found) > 0 {
		reasoning += " Found: " + strings.Join(found, ", ")
	}

	return score, reasoning
}

func negatedContext(text string, keywordIdx int) bool {
	start := keywordIdx - negationWindow
	if start < 0 {
		start = 0
	}
	window := text[start:keywordIdx]

	for _, marker := range negationMarkers {
		if strings.Contains(window, marker) {
			return true
		}
	}
	return false
}
