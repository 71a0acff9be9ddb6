// Package langfuse is a minimal client for the trace store's public REST API:
// trace search, fetch-by-id, and score writes. The store indexes traces
// asynchronously, so a trace may not be visible immediately after the model
// call that produced it; callers handle that with bounded retries.
package langfuse

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	tracesPath = "/api/public/traces"
	scoresPath = "/api/public/scores"
	healthPath = "/api/public/health"

	defaultTimeout = 30 * time.Second
)

// ErrTraceNotFound is returned when a trace id is not (yet) indexed.
// It is the retryable outcome of the locator's polling loop.
var ErrTraceNotFound = errors.New("trace not found")

// Client talks to one trace store project using basic auth.
type Client struct {
	host       string
	publicKey  string
	secretKey  string
	httpClient *http.Client
}

// NewClient creates a store client. host is the base URL of the store,
// without a trailing slash.
func NewClient(host, publicKey, secretKey string) (*Client, error) {
	if host == "" {
		return nil, fmt.Errorf("store host must not be empty")
	}
	if publicKey == "" || secretKey == "" {
		return nil, fmt.Errorf("both public and secret keys are required for store auth")
	}

	return &Client{
		host:       host,
		publicKey:  publicKey,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}, nil
}

// Health verifies the store is reachable and credentials are accepted.
func (c *Client) Health(ctx context.Context) error {
	var status healthStatus
	if err := c.get(ctx, healthPath, nil, &status); err != nil {
		return fmt.Errorf("store health check failed: %w", err)
	}
	return nil
}

// SearchTraces queries the most recent traces matching q, newest first.
func (c *Client) SearchTraces(ctx context.Context, q TraceQuery) ([]*Trace, error) {
	params := url.Values{}
	if q.SessionID != "" {
		params.Set("sessionId", q.SessionID)
	}
	for _, tag := range q.Tags {
		params.Add("tags", tag)
	}
	if !q.FromTimestamp.IsZero() {
		params.Set("fromTimestamp", q.FromTimestamp.UTC().Format(time.RFC3339))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	params.Set("limit", strconv.Itoa(limit))
	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "timestamp.desc"
	}
	params.Set("orderBy", orderBy)

	var page tracePage
	if err := c.get(ctx, tracesPath, params, &page); err != nil {
		return nil, fmt.Errorf("trace search failed: %w", err)
	}

	return page.Data, nil
}

// GetTrace fetches a single trace by id. Returns ErrTraceNotFound when the
// store has no record under that id, which may just mean indexing is pending.
func (c *Client) GetTrace(ctx context.Context, id string) (*Trace, error) {
	if id == "" {
		return nil, fmt.Errorf("trace id must not be empty")
	}

	var trace Trace
	err := c.get(ctx, tracesPath+"/"+url.PathEscape(id), nil, &trace)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("trace %q: %w", id, ErrTraceNotFound)
		}
		return nil, fmt.Errorf("failed to fetch trace %q: %w", id, err)
	}

	return &trace, nil
}

// CreateScore writes a score against a trace. Writes are idempotent per
// (trace id, score name): the store overwrites rather than duplicates.
func (c *Client) CreateScore(ctx context.Context, score Score) error {
	if score.TraceID == "" {
		return fmt.Errorf("score requires a trace id")
	}
	if score.Name == "" {
		return fmt.Errorf("score requires a name")
	}

	body, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("failed to encode score: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+scoresPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("score write failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp)
	}

	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.host + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *Client) authorize(req *http.Request) {
	credentials := base64.StdEncoding.EncodeToString([]byte(c.publicKey + ":" + c.secretKey))
	req.Header.Set("Authorization", "Basic "+credentials)
}

// APIError is a non-2xx response from the store.
type APIError struct {
	StatusCode int
	Body       string
}

func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("store responded with status %d: %s", e.StatusCode, e.Body)
}
