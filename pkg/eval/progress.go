package eval

// ProgressEventType identifies a stage in the batch pipeline.
type ProgressEventType string

const (
	EventBatchStart    ProgressEventType = "batchStart"
	EventCaseStart     ProgressEventType = "caseStart"
	EventCaseExecuting ProgressEventType = "caseExecuting"
	EventCaseLocating  ProgressEventType = "caseLocating"
	EventCaseScoring   ProgressEventType = "caseScoring"
	EventCaseSubmit    ProgressEventType = "caseSubmit"
	EventCaseComplete  ProgressEventType = "caseComplete"
	EventBatchComplete ProgressEventType = "batchComplete"
)

// ProgressEvent reports pipeline progress to an observer such as the CLI
// display. Case is set for per-case events.
type ProgressEvent struct {
	Type    ProgressEventType
	Message string
	Case    *CaseResult
}

// ProgressCallback consumes progress events. Callbacks may be invoked from
// concurrent case goroutines and must be safe for parallel use.
type ProgressCallback func(event ProgressEvent)

// NoopProgressCallback ignores all events.
func NoopProgressCallback(ProgressEvent) {}
