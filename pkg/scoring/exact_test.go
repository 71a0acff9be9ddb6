package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExactMatch(t *testing.T) {
	tests := map[string]struct {
		response string
		expected string
		score    float64
	}{
		"substring match": {
			response: "The answer is 42.",
			expected: "42",
			score:    1.0,
		},
		"wrong number": {
			response: "The answer is 52.",
			expected: "42",
			score:    0.0,
		},
		"case insensitive": {
			response: "The capital of France is PARIS.",
			expected: "Paris",
			score:    1.0,
		},
		"numeric fallback when phrasing differs": {
			response: "After adding them up you get 42",
			expected: "the sum is 42",
			score:    1.0,
		},
		"numeric mismatch on last token": {
			response: "The sum is fifty-two, written 52",
			expected: "the sum is 42",
			score:    0.0,
		},
		"decimal numbers": {
			response: "It comes out to 3.14 exactly.",
			expected: "The value is 3.14",
			score:    1.0,
		},
		"no match at all": {
			response: "I have no idea.",
			expected: "Paris",
			score:    0.0,
		},
		"empty expected is vacuously contained": {
			response: "anything",
			expected: "",
			score:    1.0,
		},
		"digits inside words are not numeric answers": {
			response: "It came 42nd in the rankings",
			expected: "the answer is 42",
			score:    0.0,
		},
	}

	s := &ExactMatch{}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			score, reasoning := s.Score(context.Background(), tc.response, Params{Expected: tc.expected})
			assert.Equal(t, tc.score, score)
			assert.NotEmpty(t, reasoning)
		})
	}
}

func TestLastNumber(t *testing.T) {
	assert.Equal(t, "42", lastNumber("The answer is 42."))
	assert.Equal(t, "52", lastNumber("not 42 but 52"))
	assert.Equal(t, "3.5", lastNumber("it dropped to -3.5"))
	assert.Equal(t, "5", lastNumber("running version 3.4.5 now"))
	assert.Equal(t, "", lastNumber("no numbers here"))
	assert.Equal(t, "", lastNumber("the 42nd attempt"))
}
