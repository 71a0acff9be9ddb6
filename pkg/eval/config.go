package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sigs.k8s.io/yaml"

	"github.com/tracecheck/tracecheck/pkg/locate"
	"github.com/tracecheck/tracecheck/pkg/model"
	"github.com/tracecheck/tracecheck/pkg/scoring"
)

const KindScoringBatch = "ScoringBatch"

// BatchSpec is the top-level configuration for one scoring run.
type BatchSpec struct {
	Metadata BatchMetadata `json:"metadata"`
	Config   BatchConfig   `json:"config"`

	basePath string
}

type BatchMetadata struct {
	Name string `json:"name"`
}

type BatchConfig struct {
	// Model is the endpoint under test, resolved via env variable names.
	Model *model.EnvConfig `json:"model"`

	// Store is the trace store backend, resolved via env variable names.
	Store *StoreEnvConfig `json:"store"`

	// Judge configures the secondary model used by the llm_judge
	// strategy. Optional; without it llm_judge cases score neutrally.
	Judge *scoring.JudgeConfig `json:"judge,omitempty"`

	// Addressing selects how executions are resolved to trace records:
	// "direct" (deterministic ids) or "search" (correlate on metadata).
	// Defaults to search, which works with any store.
	Addressing locate.AddressingMode `json:"addressing,omitempty"`

	// Locator tunes the trace polling loop.
	Locator LocatorConfig `json:"locator,omitempty"`

	// SessionID groups this batch's traces in the store. Generated from
	// the batch name and a timestamp when empty.
	SessionID string `json:"sessionId,omitempty"`

	// UserID is recorded on every execution. Defaults to
	// "scoring-evaluator".
	UserID string `json:"userId,omitempty"`

	// Concurrency bounds parallel case execution. Defaults to 1.
	Concurrency int `json:"concurrency,omitempty"`

	// Timeout bounds the whole batch, e.g. "5m". Cases still waiting on
	// trace indexing when it expires are marked unscored.
	Timeout string `json:"timeout,omitempty"`

	// CaseSets name the test case files to run.
	CaseSets []CaseSet `json:"caseSets"`
}

// StoreEnvConfig resolves trace store credentials from env variable names.
type StoreEnvConfig struct {
	HostKey      string `json:"hostKey"`
	PublicKeyKey string `json:"publicKeyKey"`
	SecretKeyKey string `json:"secretKeyKey"`
}

func (cfg *StoreEnvConfig) Host() string {
	return os.Getenv(cfg.HostKey)
}

func (cfg *StoreEnvConfig) PublicKey() string {
	return os.Getenv(cfg.PublicKeyKey)
}

func (cfg *StoreEnvConfig) SecretKey() string {
	return os.Getenv(cfg.SecretKeyKey)
}

// LocatorConfig is the YAML-facing shape of locate.Config.
type LocatorConfig struct {
	MaxAttempts  int    `json:"maxAttempts,omitempty"`
	InitialDelay string `json:"initialDelay,omitempty"`
	MaxDelay     string `json:"maxDelay,omitempty"`
	SearchLimit  int    `json:"searchLimit,omitempty"`
}

// ToLocateConfig parses the delay strings into a locate.Config.
func (c LocatorConfig) ToLocateConfig() (locate.Config, error) {
	cfg := locate.Config{
		MaxAttempts: c.MaxAttempts,
		SearchLimit: c.SearchLimit,
	}

	var err error
	if c.InitialDelay != "" {
		cfg.InitialDelay, err = time.ParseDuration(c.InitialDelay)
		if err != nil {
			return cfg, fmt.Errorf("invalid locator initialDelay: %w", err)
		}
	}
	if c.MaxDelay != "" {
		cfg.MaxDelay, err = time.ParseDuration(c.MaxDelay)
		if err != nil {
			return cfg, fmt.Errorf("invalid locator maxDelay: %w", err)
		}
	}

	return cfg, nil
}

// CaseSet names test case files by glob or single path.
type CaseSet struct {
	// Exactly one of Glob or Path must be set.
	Glob string `json:"glob,omitempty"`
	Path string `json:"path,omitempty"`
}

func (s *BatchSpec) UnmarshalJSON(data []byte) error {
	type doppelganger BatchSpec
	return unmarshalWithKind(data, (*doppelganger)(s), KindScoringBatch)
}

// BasePath is the directory the spec file was loaded from; relative case
// set paths resolve against it.
func (s *BatchSpec) BasePath() string {
	return s.basePath
}

// Timeout returns the batch deadline, defaulting to 5 minutes.
func (c *BatchConfig) BatchTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 5 * time.Minute, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid batch timeout: %w", err)
	}
	return d, nil
}

// Read parses a batch spec and resolves relative case set paths against
// basePath.
func Read(data []byte, basePath string) (*BatchSpec, error) {
	spec := &BatchSpec{}

	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, err
	}
	spec.basePath = basePath

	if spec.Config.Model == nil {
		return nil, fmt.Errorf("batch config must name a model endpoint")
	}
	if spec.Config.Store == nil {
		return nil, fmt.Errorf("batch config must name a trace store")
	}
	if len(spec.Config.CaseSets) == 0 {
		return nil, fmt.Errorf("batch config must list at least one case set")
	}

	for i := range spec.Config.CaseSets {
		set := &spec.Config.CaseSets[i]
		if set.Glob != "" && set.Path != "" {
			return nil, fmt.Errorf("case set at index %d must set only one of glob or path", i)
		}
		if set.Glob == "" && set.Path == "" {
			return nil, fmt.Errorf("case set at index %d must set one of glob or path", i)
		}
		resolveFilePath(&set.Glob, basePath)
		resolveFilePath(&set.Path, basePath)
	}

	return spec, nil
}

// FromFile loads a batch spec from a YAML file.
func FromFile(path string) (*BatchSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch spec '%s': %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for '%s': %w", path, err)
	}

	return Read(data, filepath.Dir(absPath))
}

func resolveFilePath(filePath *string, basePath string) {
	if filePath == nil || *filePath == "" || filepath.IsAbs(*filePath) {
		return
	}
	*filePath = filepath.Join(basePath, *filePath)
}

// unmarshalWithKind decodes data into target after checking that its "kind"
// field names the expected document type.
func unmarshalWithKind(data []byte, target any, expectedKind string) error {
	probe := struct {
		Kind string `json:"kind"`
	}{}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if probe.Kind != expectedKind {
		return fmt.Errorf("cannot decode kind '%s' as kind '%s'", probe.Kind, expectedKind)
	}

	return json.Unmarshal(data, target)
}
