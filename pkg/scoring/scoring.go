// Package scoring evaluates model responses against expected answers using
// named, independently testable strategies. Every strategy produces a numeric
// score in [0.0, 1.0] plus a human-readable rationale; a categorical label is
// derived from the numeric value by fixed thresholds.
package scoring

import (
	"context"
	"fmt"
	"sync"
)

// Categorical labels derived from a numeric score.
const (
	CategoryPassed  = "passed"
	CategoryPartial = "partial"
	CategoryFailed  = "failed"
)

// Strategy method names.
const (
	MethodExactMatch         = "exact_match"
	MethodKeywordMatch       = "keyword_match"
	MethodSemanticSimilarity = "semantic_similarity"
	MethodLLMJudge           = "llm_judge"
)

// Params carries the expected answer and any method-specific knobs.
type Params struct {
	Expected         string   `json:"expected"`
	RequiredKeywords []string `json:"requiredKeywords,omitempty"`
	DomainKeywords   []string `json:"domainKeywords,omitempty"`
}

// Result is one scoring outcome for one response.
type Result struct {
	// Name is the score name submitted to the store, e.g. "automated_exact_match".
	Name        string  `json:"name"`
	Value       float64 `json:"value"`
	Categorical string  `json:"categorical"`
	Reasoning   string  `json:"reasoning"`
	DataType    string  `json:"dataType"`
}

// Strategy scores a single response. Implementations are stateless and must
// not fail: questionable inputs degrade to a low or neutral score with the
// reason spelled out in the rationale.
type Strategy interface {
	Name() string
	Score(ctx context.Context, response string, p Params) (float64, string)
}

// Categorize maps a numeric score to its categorical label.
// The thresholds are fixed: >= 0.8 passed, >= 0.5 partial, else failed.
func Categorize(value float64) string {
	switch {
	case value >= 0.8:
		return CategoryPassed
	case value >= 0.5:
		return CategoryPartial
	default:
		return CategoryFailed
	}
}

// Registry dispatches scoring by method name.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// DefaultRegistry returns a registry with all four built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range []Strategy{
		&ExactMatch{},
		&KeywordMatch{},
		&SemanticSimilarity{},
		&LLMJudgeStrategy{},
	} {
		// Built-in names never collide.
		_ = r.Register(s)
	}
	return r
}

// Register adds a strategy under its name.
func (r *Registry) Register(s Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[s.Name()]; exists {
		return fmt.Errorf("a strategy is already registered for method '%s'", s.Name())
	}

	r.strategies[s.Name()] = s
	return nil
}

// Evaluate scores a response with the named method. An unknown method yields
// a neutral 0.5 rather than an error, so a misconfigured test case degrades
// instead of aborting its batch.
func (r *Registry) Evaluate(ctx context.Context, method, response string, p Params) Result {
	r.mu.RLock()
	strategy, ok := r.strategies[method]
	r.mu.RUnlock()

	if !ok {
		return newResult(method, 0.5, fmt.Sprintf("Unknown scoring method: %s", method))
	}

	value, reasoning := strategy.Score(ctx, response, p)
	return newResult(method, value, reasoning)
}

func newResult(method string, value float64, reasoning string) Result {
	value = clamp(value)
	return Result{
		Name:        "automated_" + method,
		Value:       value,
		Categorical: Categorize(value),
		Reasoning:   reasoning,
		DataType:    "NUMERIC",
	}
}

func clamp(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}
