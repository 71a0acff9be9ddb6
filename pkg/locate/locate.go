// Package locate resolves a locally-initiated model execution to its record
// in the trace store. Indexing is asynchronous with unpredictable latency,
// so both addressing strategies poll with bounded, clock-injectable retries.
package locate

import (
	"context"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"github.com/tracecheck/tracecheck/pkg/langfuse"
	"github.com/tracecheck/tracecheck/pkg/retry"
	"github.com/tracecheck/tracecheck/pkg/traceid"
)

// AddressingMode selects how executions are matched to trace records.
type AddressingMode string

const (
	// ModeDirect fetches by a deterministic, caller-computed trace id.
	ModeDirect AddressingMode = "direct"

	// ModeSearch queries recent traces by session and correlates on
	// metadata, for stores that assign their own opaque ids.
	ModeSearch AddressingMode = "search"
)

// Query identifies the execution to resolve. TraceID is optional; when
// empty, direct lookups derive it from the session id and test name.
type Query struct {
	SessionID string
	TestName  string
	TraceID   string
	Tags      []string
}

// TraceHandle is the locator's per-case bookkeeping. It is mutated only
// during one Locate call and read by the caller afterwards.
type TraceHandle struct {
	Mode         AddressingMode `json:"mode"`
	TraceID      string         `json:"traceId,omitempty"`
	Discovered   bool           `json:"discovered"`
	Attempts     int            `json:"attempts"`
	LastPolledAt time.Time      `json:"lastPolledAt,omitempty"`
}

// Resolution is a completed lookup: the trace when discovered, plus the
// handle recording how the lookup went.
type Resolution struct {
	Handle TraceHandle
	Trace  *langfuse.Trace
}

// Locator resolves one execution's trace record. Implementations are safe
// for concurrent use; every call gets its own retry state.
type Locator interface {
	Locate(ctx context.Context, q Query) (*Resolution, error)
}

// Config tunes the polling loop shared by both locators.
type Config struct {
	// MaxAttempts bounds the total polls per lookup.
	MaxAttempts int

	// InitialDelay is the backoff before the second attempt; subsequent
	// delays double up to MaxDelay. MaxDelay zero means fixed delays.
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// SearchLimit is how many recent traces a search-correlate poll
	// inspects.
	SearchLimit int

	// Clock drives inter-poll sleeps; nil means the real clock.
	Clock clock.Clock
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 2 * time.Second
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = 50
	}
	if c.Clock == nil {
		c.Clock = clock.RealClock{}
	}
	return c
}

func (c Config) backoff() retry.BackoffFunc {
	if c.MaxDelay > 0 {
		return retry.Exponential(c.InitialDelay, c.MaxDelay)
	}
	return retry.Fixed(c.InitialDelay)
}

// ForMode returns the locator for an addressing mode.
func ForMode(mode AddressingMode, client *langfuse.Client, cfg Config) (Locator, error) {
	switch mode {
	case ModeDirect:
		return NewDirectLocator(client, cfg), nil
	case ModeSearch, "":
		return NewSearchLocator(client, cfg), nil
	default:
		return nil, fmt.Errorf("unknown addressing mode '%s'", mode)
	}
}

// DirectLocator resolves traces by deterministic id with a single
// fetch-by-id per poll. No search involved.
type DirectLocator struct {
	client *langfuse.Client
	cfg    Config
}

var _ Locator = &DirectLocator{}

func NewDirectLocator(client *langfuse.Client, cfg Config) *DirectLocator {
	return &DirectLocator{client: client, cfg: cfg.withDefaults()}
}

func (l *DirectLocator) Locate(ctx context.Context, q Query) (*Resolution, error) {
	id := q.TraceID
	if id == "" {
		id = traceid.Generate(traceid.Seed(q.SessionID, q.TestName))
	}

	res := &Resolution{Handle: TraceHandle{Mode: ModeDirect, TraceID: id}}

	err := retry.Do(ctx, retry.Config{
		MaxAttempts: l.cfg.MaxAttempts,
		Backoff:     l.cfg.backoff(),
		Clock:       l.cfg.Clock,
	}, func(ctx context.Context) error {
		res.Handle.Attempts++
		res.Handle.LastPolledAt = l.cfg.Clock.Now()

		trace, err := l.client.GetTrace(ctx, id)
		if err != nil {
			return err
		}
		res.Trace = trace
		return nil
	}, nil)
	if err != nil {
		return res, fmt.Errorf("direct lookup for test '%s' failed after %d attempts: %w", q.TestName, res.Handle.Attempts, err)
	}

	res.Handle.Discovered = true
	return res, nil
}

// SearchLocator resolves traces by querying the most recent records for the
// session and matching on tags or correlation attributes. Needed when the
// store assigns its own opaque ids.
type SearchLocator struct {
	client *langfuse.Client
	cfg    Config
}

var _ Locator = &SearchLocator{}

func NewSearchLocator(client *langfuse.Client, cfg Config) *SearchLocator {
	return &SearchLocator{client: client, cfg: cfg.withDefaults()}
}

func (l *SearchLocator) Locate(ctx context.Context, q Query) (*Resolution, error) {
	res := &Resolution{Handle: TraceHandle{Mode: ModeSearch}}

	err := retry.Do(ctx, retry.Config{
		MaxAttempts: l.cfg.MaxAttempts,
		Backoff:     l.cfg.backoff(),
		Clock:       l.cfg.Clock,
	}, func(ctx context.Context) error {
		res.Handle.Attempts++
		res.Handle.LastPolledAt = l.cfg.Clock.Now()

		traces, err := l.client.SearchTraces(ctx, langfuse.TraceQuery{
			SessionID: q.SessionID,
			Tags:      q.Tags,
			Limit:     l.cfg.SearchLimit,
		})
		if err != nil {
			return err
		}

		for _, trace := range traces {
			if matchesQuery(trace, q) {
				res.Trace = trace
				return nil
			}
		}
		return fmt.Errorf("no trace for test '%s' in %d candidates: %w", q.TestName, len(traces), langfuse.ErrTraceNotFound)
	}, nil)
	if err != nil {
		return res, fmt.Errorf("search lookup for test '%s' failed after %d attempts: %w", q.TestName, res.Handle.Attempts, err)
	}

	res.Handle.Discovered = true
	res.Handle.TraceID = res.Trace.ID
	return res, nil
}

// matchesQuery correlates a candidate trace with the execution: either the
// test name appears among the trace's tags, or the recorded session and
// test attributes both match.
func matchesQuery(trace *langfuse.Trace, q Query) bool {
	for _, tag := range trace.Tags {
		if tag == q.TestName {
			return true
		}
	}
	for _, tag := range trace.Metadata.StringSliceAttr("langfuse.tags") {
		if tag == q.TestName {
			return true
		}
	}

	return trace.Metadata.StringAttr("session.id") == q.SessionID &&
		trace.Metadata.StringAttr("test.name") == q.TestName &&
		q.TestName != ""
}
