package eval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tracecheck/tracecheck/pkg/langfuse"
	"github.com/tracecheck/tracecheck/pkg/scoring"
)

// Score names written back to the store per case, beyond the numeric
// per-method score.
const (
	scoreNameResult   = "test_result"
	scoreNameCategory = "test_category"
)

// Tally counts score writes across a batch.
type Tally struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Submitter writes score results to the trace store. Writes are idempotent
// per (trace id, score name); re-submission overwrites. Failures are counted
// and reported, never raised past the per-case boundary.
type Submitter struct {
	client *langfuse.Client

	mu    sync.Mutex
	tally Tally
}

// NewSubmitter creates a submitter over a store client. Safe for use from
// concurrent case goroutines.
func NewSubmitter(client *langfuse.Client) *Submitter {
	return &Submitter{client: client}
}

// Submit writes the numeric score, the derived categorical result, and (when
// the case has a category) a categorical test_category score. Individual
// write failures are joined into one error after all writes were attempted.
func (s *Submitter) Submit(ctx context.Context, traceID, category string, score scoring.Result) error {
	writes := []langfuse.Score{
		{
			TraceID:  traceID,
			Name:     score.Name,
			Value:    score.Value,
			DataType: langfuse.ScoreDataTypeNumeric,
			Comment:  score.Reasoning,
		},
		{
			TraceID:  traceID,
			Name:     scoreNameResult,
			Value:    score.Categorical,
			DataType: langfuse.ScoreDataTypeCategorical,
		},
	}
	if category != "" {
		writes = append(writes, langfuse.Score{
			TraceID:  traceID,
			Name:     scoreNameCategory,
			Value:    category,
			DataType: langfuse.ScoreDataTypeCategorical,
		})
	}

	var errs error
	for _, write := range writes {
		if err := s.client.CreateScore(ctx, write); err != nil {
			s.count(false)
			errs = errors.Join(errs, fmt.Errorf("score '%s' for trace %s: %w", write.Name, traceID, err))
			continue
		}
		s.count(true)
	}

	return errs
}

// Tally returns the running sent/failed counts.
func (s *Submitter) Tally() Tally {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tally
}

func (s *Submitter) count(sent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sent {
		s.tally.Sent++
	} else {
		s.tally.Failed++
	}
}
