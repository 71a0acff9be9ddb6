package eval

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/tracecheck/tracecheck/pkg/scoring"
)

const KindTestCase = "TestCase"

// TestCase is one prompt to run against the model endpoint, plus how to
// score the response. Immutable once loaded.
type TestCase struct {
	Metadata TestCaseMetadata `json:"metadata"`
	Prompt   TestCasePrompt   `json:"prompt"`
	Scoring  TestCaseScoring  `json:"scoring"`
}

type TestCaseMetadata struct {
	// Name must be unique within a batch. A "_correct" or "_wrong"
	// suffix encodes whether the case is expected to pass validation.
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

type TestCasePrompt struct {
	System string `json:"system,omitempty"`
	User   string `json:"user"`
}

type TestCaseScoring struct {
	Method           string   `json:"method"`
	ExpectedAnswer   string   `json:"expectedAnswer"`
	RequiredKeywords []string `json:"requiredKeywords,omitempty"`
	DomainKeywords   []string `json:"domainKeywords,omitempty"`
}

func (t *TestCase) UnmarshalJSON(data []byte) error {
	type doppelganger TestCase
	return unmarshalWithKind(data, (*doppelganger)(t), KindTestCase)
}

// Params maps the case's scoring knobs onto strategy parameters.
func (t *TestCase) Params() scoring.Params {
	return scoring.Params{
		Expected:         t.Scoring.ExpectedAnswer,
		RequiredKeywords: t.Scoring.RequiredKeywords,
		DomainKeywords:   t.Scoring.DomainKeywords,
	}
}

func (t *TestCase) Validate() error {
	if t.Metadata.Name == "" {
		return fmt.Errorf("test case must have a name")
	}
	if t.Prompt.User == "" {
		return fmt.Errorf("test case '%s' must have a user prompt", t.Metadata.Name)
	}
	if t.Scoring.Method == "" {
		return fmt.Errorf("test case '%s' must specify a scoring method", t.Metadata.Name)
	}
	return nil
}

// CaseFromFile loads a single test case from a YAML file.
func CaseFromFile(path string) (*TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read test case file '%s': %w", path, err)
	}

	tc := &TestCase{}
	if err := yaml.Unmarshal(data, tc); err != nil {
		return nil, fmt.Errorf("failed to parse test case file '%s': %w", path, err)
	}

	if err := tc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid test case in '%s': %w", path, err)
	}

	return tc, nil
}
