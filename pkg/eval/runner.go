package eval

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tracecheck/tracecheck/pkg/langfuse"
	"github.com/tracecheck/tracecheck/pkg/locate"
	"github.com/tracecheck/tracecheck/pkg/model"
	"github.com/tracecheck/tracecheck/pkg/scoring"
	"github.com/tracecheck/tracecheck/pkg/traceid"
)

// batchTag is attached to every execution so its trace is discoverable by
// tag search even when attribute propagation is lossy.
const batchTag = "tracecheck"

const defaultUserID = "scoring-evaluator"

// CaseStatus tracks how far a case made it through the pipeline. Every
// failure mode is a terminal status on the record, never a batch abort.
type CaseStatus string

const (
	StatusPending      CaseStatus = "pending"
	StatusExecuted     CaseStatus = "executed"
	StatusLocated      CaseStatus = "located"
	StatusUnlocatable  CaseStatus = "unlocatable"
	StatusScored       CaseStatus = "scored"
	StatusUnscorable   CaseStatus = "unscorable"
	StatusSubmitted    CaseStatus = "submitted"
	StatusSubmitFailed CaseStatus = "submitFailed"
	StatusValidated    CaseStatus = "validated"
)

// CaseResult is the complete record of one case's trip through the
// pipeline. Error fields hold what went wrong at each stage; an empty
// field means the stage succeeded or was never reached.
type CaseResult struct {
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Question  string    `json:"question"`
	Expected  string    `json:"expected,omitempty"`
	Method    string    `json:"method"`
	SessionID string    `json:"sessionId"`
	RunID     string    `json:"runId"`
	StartedAt time.Time `json:"startedAt"`

	Response  string      `json:"response,omitempty"`
	Usage     model.Usage `json:"usage"`
	LatencyMs int64       `json:"latencyMs"`
	ExecError string      `json:"execError,omitempty"`

	TraceID        string `json:"traceId,omitempty"`
	LocateAttempts int    `json:"locateAttempts,omitempty"`
	LocateError    string `json:"locateError,omitempty"`

	Score       *scoring.Result `json:"score,omitempty"`
	SubmitError string          `json:"submitError,omitempty"`

	Status CaseStatus `json:"status"`
}

// Scored reports whether the case produced a numeric score.
func (r *CaseResult) Scored() bool {
	return r.Score != nil
}

// BatchRunner executes a batch spec end to end.
type BatchRunner interface {
	Run(ctx context.Context) ([]*CaseResult, error)
	RunWithProgress(ctx context.Context, callback ProgressCallback) ([]*CaseResult, error)

	// SessionID returns the session the batch ran under, available after
	// Run returns.
	SessionID() string

	// SubmissionTally returns the score write counts, available after
	// Run returns.
	SubmissionTally() Tally
}

type batchRunner struct {
	spec *BatchSpec

	sessionID string
	tally     Tally
}

var _ BatchRunner = &batchRunner{}

// NewRunner creates a runner for the given batch spec.
func NewRunner(spec *BatchSpec) BatchRunner {
	return &batchRunner{spec: spec}
}

func (r *batchRunner) Run(ctx context.Context) ([]*CaseResult, error) {
	return r.RunWithProgress(ctx, NoopProgressCallback)
}

// runDeps carries the per-run collaborators into case goroutines.
type runDeps struct {
	model     *model.Client
	locator   locate.Locator
	submitter *Submitter
	registry  *scoring.Registry
	progress  ProgressCallback

	addressing locate.AddressingMode
	sessionID  string
	userID     string
	runID      string
}

func (r *batchRunner) RunWithProgress(ctx context.Context, callback ProgressCallback) ([]*CaseResult, error) {
	if callback == nil {
		callback = NoopProgressCallback
	}
	cfg := r.spec.Config

	modelClient, err := model.NewClientFromEnv(cfg.Model)
	if err != nil {
		return nil, err
	}

	store, err := storeClient(cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := store.Health(ctx); err != nil {
		return nil, fmt.Errorf("trace store unreachable: %w", err)
	}

	if cfg.Judge != nil {
		judge, err := scoring.NewJudge(cfg.Judge)
		if err != nil {
			return nil, err
		}
		ctx = scoring.WithJudge(ctx, judge)
	}

	locCfg, err := cfg.Locator.ToLocateConfig()
	if err != nil {
		return nil, err
	}
	locator, err := locate.ForMode(cfg.Addressing, store, locCfg)
	if err != nil {
		return nil, err
	}

	cases, err := collectCases(cfg.CaseSets)
	if err != nil {
		return nil, err
	}

	timeout, err := cfg.BatchTimeout()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.sessionID = cfg.SessionID
	if r.sessionID == "" {
		r.sessionID = fmt.Sprintf("scoring-%s", time.Now().Format("20060102-150405"))
	}

	deps := &runDeps{
		model:      modelClient,
		locator:    locator,
		submitter:  NewSubmitter(store),
		registry:   scoring.DefaultRegistry(),
		progress:   callback,
		addressing: cfg.Addressing,
		sessionID:  r.sessionID,
		userID:     cfg.UserID,
		runID:      uuid.NewString(),
	}
	if deps.userID == "" {
		deps.userID = defaultUserID
	}

	callback(ProgressEvent{
		Type:    EventBatchStart,
		Message: fmt.Sprintf("Running %d cases in session %s", len(cases), deps.sessionID),
	})

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	// Each case owns its own result slot, so goroutines never contend.
	results := make([]*CaseResult, len(cases))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for i, tc := range cases {
		group.Go(func() error {
			results[i] = runCase(groupCtx, deps, tc)
			return nil
		})
	}
	// Case errors never surface here; every failure lands on its record.
	_ = group.Wait()

	r.tally = deps.submitter.Tally()
	callback(ProgressEvent{
		Type: EventBatchComplete,
		Message: fmt.Sprintf("Batch complete: %d scores sent, %d failed",
			r.tally.Sent, r.tally.Failed),
	})

	return results, nil
}

func (r *batchRunner) SessionID() string {
	return r.sessionID
}

func (r *batchRunner) SubmissionTally() Tally {
	return r.tally
}

// runCase takes one test case through execute, locate, score, submit. It
// always returns a result; the Status field says how far it got.
func runCase(ctx context.Context, deps *runDeps, tc *TestCase) *CaseResult {
	result := &CaseResult{
		Name:      tc.Metadata.Name,
		Category:  tc.Metadata.Category,
		Question:  tc.Prompt.User,
		Expected:  tc.Scoring.ExpectedAnswer,
		Method:    tc.Scoring.Method,
		SessionID: deps.sessionID,
		RunID:     deps.runID,
		StartedAt: time.Now(),
		Status:    StatusPending,
	}
	deps.progress(ProgressEvent{Type: EventCaseStart, Case: result})

	// Direct addressing pins the trace id before the call so both sides
	// agree without any lookup.
	var pinnedTraceID string
	if deps.addressing == locate.ModeDirect {
		pinnedTraceID = traceid.Generate(traceid.Seed(deps.sessionID, tc.Metadata.Name))
	}

	tags := []string{batchTag, tc.Metadata.Name}
	if tc.Metadata.Category != "" {
		tags = append(tags, tc.Metadata.Category)
	}

	deps.progress(ProgressEvent{Type: EventCaseExecuting, Case: result})
	invoked, err := deps.model.Invoke(ctx, model.InvokeRequest{
		SystemPrompt: tc.Prompt.System,
		UserPrompt:   tc.Prompt.User,
		Metadata: model.Metadata{
			SessionID: deps.sessionID,
			UserID:    deps.userID,
			TestName:  tc.Metadata.Name,
			Category:  tc.Metadata.Category,
			Tags:      tags,
			TraceID:   pinnedTraceID,
		},
	})
	if err != nil {
		result.ExecError = err.Error()
		result.Status = StatusUnscorable
		deps.progress(ProgressEvent{Type: EventCaseComplete, Case: result})
		return result
	}
	result.Response = invoked.Text
	result.Usage = invoked.Usage
	result.LatencyMs = invoked.Latency.Milliseconds()
	result.Status = StatusExecuted

	deps.progress(ProgressEvent{Type: EventCaseLocating, Case: result})
	resolution, err := deps.locator.Locate(ctx, locate.Query{
		SessionID: deps.sessionID,
		TestName:  tc.Metadata.Name,
		TraceID:   pinnedTraceID,
	})
	if resolution != nil {
		result.LocateAttempts = resolution.Handle.Attempts
	}
	if err != nil {
		result.LocateError = err.Error()
		result.Status = StatusUnlocatable
		deps.progress(ProgressEvent{Type: EventCaseComplete, Case: result})
		return result
	}
	result.TraceID = resolution.Handle.TraceID
	result.Status = StatusLocated

	deps.progress(ProgressEvent{Type: EventCaseScoring, Case: result})
	score := deps.registry.Evaluate(ctx, tc.Scoring.Method, result.Response, tc.Params())
	result.Score = &score
	result.Status = StatusScored

	deps.progress(ProgressEvent{Type: EventCaseSubmit, Case: result})
	if err := deps.submitter.Submit(ctx, result.TraceID, tc.Metadata.Category, score); err != nil {
		result.SubmitError = err.Error()
		result.Status = StatusSubmitFailed
	} else {
		result.Status = StatusSubmitted
	}

	deps.progress(ProgressEvent{Type: EventCaseComplete, Case: result})
	return result
}

func storeClient(cfg *StoreEnvConfig) (*langfuse.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("store env config is required")
	}
	if cfg.Host() == "" || cfg.PublicKey() == "" || cfg.SecretKey() == "" {
		return nil, fmt.Errorf("store env vars %s, %s and %s must all be set",
			cfg.HostKey, cfg.PublicKeyKey, cfg.SecretKeyKey)
	}
	return langfuse.NewClient(cfg.Host(), cfg.PublicKey(), cfg.SecretKey())
}

// collectCases expands the configured case sets into loaded cases, in file
// order, and rejects duplicate names up front.
func collectCases(sets []CaseSet) ([]*TestCase, error) {
	var paths []string
	for _, set := range sets {
		switch {
		case set.Path != "":
			paths = append(paths, set.Path)
		case set.Glob != "":
			matches, err := filepath.Glob(set.Glob)
			if err != nil {
				return nil, fmt.Errorf("invalid case set glob '%s': %w", set.Glob, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("case set glob '%s' matched no files", set.Glob)
			}
			paths = append(paths, matches...)
		}
	}

	cases := make([]*TestCase, 0, len(paths))
	seen := map[string]string{}
	for _, path := range paths {
		tc, err := CaseFromFile(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[tc.Metadata.Name]; ok {
			return nil, fmt.Errorf("duplicate test case name '%s' in %s and %s",
				tc.Metadata.Name, prev, path)
		}
		seen[tc.Metadata.Name] = path
		cases = append(cases, tc)
	}

	if len(cases) == 0 {
		return nil, fmt.Errorf("no test cases found in any case set")
	}

	return cases, nil
}
