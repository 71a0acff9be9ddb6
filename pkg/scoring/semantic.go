package scoring

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// SemanticSimilarity approximates semantic overlap through a configured
// domain keyword set: the score is the Jaccard overlap of domain terms
// mentioned by the response vs the expected answer. When neither side
// touches the domain set, it falls back to a raw token-overlap ratio.
type SemanticSimilarity struct{}

var _ Strategy = &SemanticSimilarity{}

func (s *SemanticSimilarity) Name() string {
	return MethodSemanticSimilarity
}

func (s *SemanticSimilarity) Score(_ context.Context, response string, p Params) (float64, string) {
	responseTerms := domainTerms(response, p.DomainKeywords)
	expectedTerms := domainTerms(p.Expected, p.DomainKeywords)

	if len(responseTerms) == 0 && len(expectedTerms) == 0 {
		return tokenOverlap(response, p.Expected)
	}

	union := make(map[string]bool, len(responseTerms)+len(expectedTerms))
	shared := make([]string, 0, len(expectedTerms))
	for term := range expectedTerms {
		union[term] = true
		if responseTerms[term] {
			shared = append(shared, term)
		}
	}
	for term := range responseTerms {
		union[term] = true
	}

	sort.Strings(shared)
	score := float64(len(shared)) / float64(len(union))

	if len(shared) == 0 {
		return score, fmt.Sprintf("No shared domain terms out of %d mentioned", len(union))
	}
	return score, fmt.Sprintf("Shared %d/%d domain terms: %s", len(shared), len(union), strings.Join(shared, ", "))
}

func domainTerms(text string, domain []string) map[string]bool {
	textLower := strings.ToLower(text)
	terms := make(map[string]bool)
	for _, term := range domain {
		termLower := strings.ToLower(term)
		if termLower != "" && strings.Contains(textLower, termLower) {
			terms[termLower] = true
		}
	}
	return terms
}

func tokenOverlap(response, expected string) (float64, string) {
	expectedTokens := tokenize(expected)
	if len(expectedTokens) == 0 {
		return 0.0, "Expected answer has no tokens to compare"
	}

	responseTokens := tokenize(response)
	matched := 0
	for token := range expectedTokens {
		if responseTokens[token] {
			matched++
		}
	}

	score := float64(matched) / float64(len(expectedTokens))
	return score, fmt.Sprintf("Token overlap: %d/%d expected tokens present in response", matched, len(expectedTokens))
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, field := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		tokens[field] = true
	}
	return tokens
}
