package eval

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBatchYaml = `kind: ScoringBatch
metadata:
  name: capitals
config:
  model:
    baseUrlKey: MODEL_URL
    apiKeyKey: MODEL_KEY
    modelNameKey: MODEL_NAME
  store:
    hostKey: STORE_HOST
    publicKeyKey: STORE_PK
    secretKeyKey: STORE_SK
  addressing: direct
  locator:
    maxAttempts: 7
    initialDelay: 250ms
    maxDelay: 4s
  sessionId: session-1
  concurrency: 4
  timeout: 90s
  caseSets:
    - glob: cases/*.yaml
    - path: extra/one-off.yaml
`

func TestReadBatchSpec(t *testing.T) {
	spec, err := Read([]byte(validBatchYaml), "/work/specs")
	require.NoError(t, err)

	assert.Equal(t, "capitals", spec.Metadata.Name)
	assert.Equal(t, "MODEL_URL", spec.Config.Model.BaseUrlKey)
	assert.Equal(t, "STORE_SK", spec.Config.Store.SecretKeyKey)
	assert.Equal(t, "session-1", spec.Config.SessionID)
	assert.Equal(t, 4, spec.Config.Concurrency)

	// Relative case set paths resolve against the spec's directory.
	assert.Equal(t, "/work/specs/cases/*.yaml", spec.Config.CaseSets[0].Glob)
	assert.Equal(t, "/work/specs/extra/one-off.yaml", spec.Config.CaseSets[1].Path)

	locCfg, err := spec.Config.Locator.ToLocateConfig()
	require.NoError(t, err)
	assert.Equal(t, 7, locCfg.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, locCfg.InitialDelay)
	assert.Equal(t, 4*time.Second, locCfg.MaxDelay)

	timeout, err := spec.Config.BatchTimeout()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, timeout)
}

func TestReadBatchSpecErrors(t *testing.T) {
	tests := map[string]struct {
		yaml        string
		expectedErr string
	}{
		"wrong kind": {
			yaml:        "kind: TestCase\nmetadata:\n  name: x\n",
			expectedErr: "cannot decode kind 'TestCase' as kind 'ScoringBatch'",
		},
		"missing model": {
			yaml: `kind: ScoringBatch
config:
  store:
    hostKey: H
  caseSets:
    - path: a.yaml
`,
			expectedErr: "must name a model endpoint",
		},
		"missing case sets": {
			yaml: `kind: ScoringBatch
config:
  model:
    baseUrlKey: U
  store:
    hostKey: H
`,
			expectedErr: "at least one case set",
		},
		"case set with both glob and path": {
			yaml: `kind: ScoringBatch
config:
  model:
    baseUrlKey: U
  store:
    hostKey: H
  caseSets:
    - glob: "*.yaml"
      path: a.yaml
`,
			expectedErr: "only one of glob or path",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Read([]byte(tc.yaml), "/base")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expectedErr)
		})
	}
}

func TestBatchTimeoutDefaults(t *testing.T) {
	cfg := &BatchConfig{}
	timeout, err := cfg.BatchTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, timeout)

	cfg.Timeout = "not-a-duration"
	_, err = cfg.BatchTimeout()
	require.Error(t, err)
}

func TestCaseFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "berlin.yaml")
	content := `kind: TestCase
metadata:
  name: berlin_correct
  category: geography
prompt:
  system: "Answer concisely."
  user: "What is the capital of Germany?"
scoring:
  method: keyword_match
  expectedAnswer: "Berlin"
  requiredKeywords:
    - berlin
    - capital
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tc, err := CaseFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "berlin_correct", tc.Metadata.Name)
	assert.Equal(t, "geography", tc.Metadata.Category)
	assert.Equal(t, "Answer concisely.", tc.Prompt.System)
	assert.Equal(t, "keyword_match", tc.Scoring.Method)

	params := tc.Params()
	assert.Equal(t, "Berlin", params.Expected)
	assert.Equal(t, []string{"berlin", "capital"}, params.RequiredKeywords)
}

func TestCaseValidate(t *testing.T) {
	tests := map[string]struct {
		testCase    TestCase
		expectedErr string
	}{
		"missing name": {
			testCase:    TestCase{Prompt: TestCasePrompt{User: "q"}, Scoring: TestCaseScoring{Method: "exact_match"}},
			expectedErr: "must have a name",
		},
		"missing prompt": {
			testCase:    TestCase{Metadata: TestCaseMetadata{Name: "x"}, Scoring: TestCaseScoring{Method: "exact_match"}},
			expectedErr: "must have a user prompt",
		},
		"missing method": {
			testCase:    TestCase{Metadata: TestCaseMetadata{Name: "x"}, Prompt: TestCasePrompt{User: "q"}},
			expectedErr: "must specify a scoring method",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := tc.testCase.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expectedErr)
		})
	}
}
