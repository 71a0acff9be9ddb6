// Package model invokes the generative-model endpoint under test, tagging
// every request with the correlation metadata the trace store's
// instrumentation records alongside the execution. The call returns as soon
// as the endpoint answers; store indexing is an out-of-process side effect
// this package never waits for.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

// Metadata correlates one model execution with its eventual trace record.
// The attribute names match what the instrumentation layer writes, so the
// locator can search on them later.
type Metadata struct {
	SessionID string
	UserID    string
	TestName  string
	Category  string
	Tags      []string
	// TraceID pins the trace identifier up front for deterministic
	// addressing. Empty when the store assigns its own id.
	TraceID string
}

// InvokeRequest is a single model execution.
type InvokeRequest struct {
	SystemPrompt string
	UserPrompt   string
	Metadata     Metadata
}

// Usage is the token consumption reported by the endpoint.
type Usage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
}

// InvokeResult is the raw outcome of one model execution.
type InvokeResult struct {
	Text    string        `json:"text"`
	Usage   Usage         `json:"usage"`
	Latency time.Duration `json:"latency"`
}

// EnvConfig resolves the model endpoint from environment variable names.
type EnvConfig struct {
	BaseUrlKey   string `json:"baseUrlKey"`
	ApiKeyKey    string `json:"apiKeyKey"`
	ModelNameKey string `json:"modelNameKey"`
}

func (cfg *EnvConfig) BaseUrl() string {
	return os.Getenv(cfg.BaseUrlKey)
}

func (cfg *EnvConfig) ApiKey() string {
	return os.Getenv(cfg.ApiKeyKey)
}

func (cfg *EnvConfig) ModelName() string {
	return os.Getenv(cfg.ModelNameKey)
}

// Client executes prompts against one OpenAI-compatible endpoint.
type Client struct {
	client *openai.Client
	model  shared.ChatModel
}

// NewClient creates a model client for the given endpoint.
func NewClient(baseUrl, apiKey, model string) (*Client, error) {
	if baseUrl == "" || apiKey == "" {
		return nil, fmt.Errorf("both base URL and API key must be provided for the model endpoint")
	}
	if model == "" {
		return nil, fmt.Errorf("a model name must be provided")
	}

	client := openai.NewClient(
		option.WithBaseURL(baseUrl),
		option.WithAPIKey(apiKey),
	)

	return &Client{
		client: &client,
		model:  shared.ChatModel(model),
	}, nil
}

// NewClientFromEnv creates a model client from an env-key config.
func NewClientFromEnv(cfg *EnvConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("model env config is required")
	}
	if cfg.BaseUrl() == "" || cfg.ApiKey() == "" || cfg.ModelName() == "" {
		return nil, fmt.Errorf("model env vars %s, %s and %s must all be set",
			cfg.BaseUrlKey, cfg.ApiKeyKey, cfg.ModelNameKey)
	}
	return NewClient(cfg.BaseUrl(), cfg.ApiKey(), cfg.ModelName())
}

// ModelName returns the configured model identifier.
func (c *Client) ModelName() string {
	return string(c.model)
}

// Invoke runs one prompt and returns the raw response, token usage, and
// observed latency. A transport or model error is returned as-is; callers
// convert it into a degraded per-case record rather than aborting a batch.
func (c *Client) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	}
	if metadata := correlationAttributes(req.Metadata); len(metadata) > 0 {
		params.Metadata = metadata
	}
	if req.Metadata.UserID != "" {
		params.User = openai.String(req.Metadata.UserID)
	}

	start := time.Now()
	completion, err := c.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("model invocation failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("model returned no completion choices")
	}

	return &InvokeResult{
		Text: completion.Choices[0].Message.Content,
		Usage: Usage{
			InputTokens:  completion.Usage.PromptTokens,
			OutputTokens: completion.Usage.CompletionTokens,
		},
		Latency: latency,
	}, nil
}

// correlationAttributes flattens Metadata into the attribute names the
// store's instrumentation convention uses.
func correlationAttributes(m Metadata) shared.Metadata {
	attrs := shared.Metadata{}
	if m.SessionID != "" {
		attrs["session.id"] = m.SessionID
	}
	if m.UserID != "" {
		attrs["user.id"] = m.UserID
	}
	if m.TestName != "" {
		attrs["test.name"] = m.TestName
	}
	if m.Category != "" {
		attrs["test.category"] = m.Category
	}
	if m.TraceID != "" {
		attrs["langfuse.trace_id"] = m.TraceID
	}
	if len(m.Tags) > 0 {
		// Tags ride as a JSON-encoded list under a single attribute key.
		encoded, err := json.Marshal(m.Tags)
		if err == nil {
			attrs["langfuse.tags"] = string(encoded)
		}
	}
	return attrs
}
