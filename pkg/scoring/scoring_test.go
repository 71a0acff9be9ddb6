package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize(t *testing.T) {
	tests := map[string]struct {
		value    float64
		category string
	}{
		"well above pass threshold": {value: 0.95, category: CategoryPassed},
		"exactly pass threshold":    {value: 0.8, category: CategoryPassed},
		"partial":                   {value: 0.6, category: CategoryPartial},
		"exactly partial threshold": {value: 0.5, category: CategoryPartial},
		"failed":                    {value: 0.2, category: CategoryFailed},
		"zero":                      {value: 0.0, category: CategoryFailed},
		"perfect":                   {value: 1.0, category: CategoryPassed},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.category, Categorize(tc.value))
		})
	}
}

func TestRegistryEvaluate(t *testing.T) {
	r := DefaultRegistry()

	result := r.Evaluate(context.Background(), MethodExactMatch, "The answer is 42.", Params{Expected: "42"})
	assert.Equal(t, "automated_exact_match", result.Name)
	assert.Equal(t, 1.0, result.Value)
	assert.Equal(t, CategoryPassed, result.Categorical)
	assert.Equal(t, "NUMERIC", result.DataType)
}

func TestRegistryUnknownMethod(t *testing.T) {
	r := DefaultRegistry()

	result := r.Evaluate(context.Background(), "vibes", "whatever", Params{})
	assert.Equal(t, 0.5, result.Value)
	assert.Equal(t, CategoryPartial, result.Categorical)
	assert.Contains(t, result.Reasoning, "Unknown scoring method")
}

func TestRegistryRejectsDuplicateStrategies(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&ExactMatch{}))
	assert.Error(t, r.Register(&ExactMatch{}))
}

func TestDefaultRegistryHasAllMethods(t *testing.T) {
	r := DefaultRegistry()

	for _, method := range []string{MethodExactMatch, MethodKeywordMatch, MethodSemanticSimilarity, MethodLLMJudge} {
		result := r.Evaluate(context.Background(), method, "response", Params{Expected: "expected"})
		assert.NotContains(t, result.Reasoning, "Unknown scoring method", "method %s should be registered", method)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, clamp(-0.3))
	assert.Equal(t, 1.0, clamp(1.3))
	assert.Equal(t, 0.7, clamp(0.7))
}
