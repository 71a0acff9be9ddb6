package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tracecheck/tracecheck/pkg/eval"
	"github.com/tracecheck/tracecheck/pkg/scoring"
)

// createTestResultsFile creates a temporary results file for testing
func createTestResultsFile(t *testing.T, results []*eval.CaseResult) string {
	t.Helper()

	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "results.json")

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal results: %v", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		t.Fatalf("failed to write results file: %v", err)
	}

	return filePath
}

func scored(name, category string, value float64) *eval.CaseResult {
	return &eval.CaseResult{
		Name:     name,
		Category: category,
		Method:   "exact_match",
		Status:   eval.StatusSubmitted,
		Score: &scoring.Result{
			Name:        "automated_exact_match",
			Value:       value,
			Categorical: scoring.Categorize(value),
			Reasoning:   "Exact match found in response.",
			DataType:    "NUMERIC",
		},
	}
}

// sampleResults returns a set of sample case results for testing
func sampleResults() []*eval.CaseResult {
	return []*eval.CaseResult{
		scored("paris_correct", "geography", 1.0),
		scored("berlin_correct", "geography", 0.9),
		scored("sum_wrong", "math", 0.2),
		{
			Name:      "oslo_correct",
			Category:  "geography",
			Method:    "exact_match",
			Status:    eval.StatusUnscorable,
			ExecError: "model invocation failed",
		},
	}
}

func TestVerifyCommandPassesThresholds(t *testing.T) {
	filePath := createTestResultsFile(t, sampleResults())

	cmd := NewVerifyCmd()
	// Average is 0.7 and pass rate 2/3; thresholds below both should pass
	cmd.SetArgs([]string{filePath, "--score", "0.5", "--pass-rate", "0.5"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err != nil {
		t.Errorf("verify command should pass with low thresholds, got error: %v", err)
	}
}

func TestVerifyCommandFailsScoreThreshold(t *testing.T) {
	filePath := createTestResultsFile(t, sampleResults())

	cmd := NewVerifyCmd()
	// Average score is 0.7, threshold 0.9 should fail
	cmd.SetArgs([]string{filePath, "--score", "0.9"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err == nil {
		t.Error("verify command should fail with high score threshold")
	}
}

func TestVerifyCommandFailsPassRateThreshold(t *testing.T) {
	filePath := createTestResultsFile(t, sampleResults())

	cmd := NewVerifyCmd()
	// Pass rate is 2/3, threshold 0.8 should fail
	cmd.SetArgs([]string{filePath, "--pass-rate", "0.8"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err == nil {
		t.Error("verify command should fail with high pass rate threshold")
	}
}

func TestVerifyCommandFailsExpectations(t *testing.T) {
	// oslo_correct never scored, which violates its expectation
	filePath := createTestResultsFile(t, sampleResults())

	cmd := NewVerifyCmd()
	cmd.SetArgs([]string{filePath, "--expectations"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err == nil {
		t.Error("verify command should fail when an expectation is violated")
	}
}

func TestVerifyCommandExpectationsClean(t *testing.T) {
	results := []*eval.CaseResult{
		scored("paris_correct", "geography", 1.0),
		scored("sum_wrong", "math", 0.2),
	}
	filePath := createTestResultsFile(t, results)

	cmd := NewVerifyCmd()
	cmd.SetArgs([]string{filePath, "--expectations"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err != nil {
		t.Errorf("verify command should pass with clean expectations, got error: %v", err)
	}
}

func TestVerifyCommandDefaultThresholds(t *testing.T) {
	filePath := createTestResultsFile(t, sampleResults())

	cmd := NewVerifyCmd()
	// Default thresholds are 0.0, should always pass
	cmd.SetArgs([]string{filePath})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err != nil {
		t.Errorf("verify command should pass with default thresholds, got error: %v", err)
	}
}

func TestVerifyCommandFileNotFound(t *testing.T) {
	cmd := NewVerifyCmd()
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.json")})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err == nil {
		t.Error("verify command should fail for a missing results file")
	}
}
