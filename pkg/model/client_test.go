package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoke(t *testing.T) {
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "test-model",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": "The answer is 42.",
					},
				},
			},
			"usage": map[string]any{
				"prompt_tokens":     21,
				"completion_tokens": 7,
				"total_tokens":      28,
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "test-key", "test-model")
	require.NoError(t, err)

	result, err := client.Invoke(context.Background(), InvokeRequest{
		SystemPrompt: "You are a helpful and accurate math tutor.",
		UserPrompt:   "What is 15 + 27?",
		Metadata: Metadata{
			SessionID: "session-1",
			UserID:    "scoring-evaluator",
			TestName:  "simple_math_correct",
			Category:  "math",
			Tags:      []string{"scoring", "simple_math_correct"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "The answer is 42.", result.Text)
	assert.Equal(t, int64(21), result.Usage.InputTokens)
	assert.Equal(t, int64(7), result.Usage.OutputTokens)
	assert.GreaterOrEqual(t, result.Latency.Nanoseconds(), int64(0))

	// Correlation metadata rides the request body.
	metadata, ok := gotBody["metadata"].(map[string]any)
	require.True(t, ok, "request should carry a metadata map")
	assert.Equal(t, "session-1", metadata["session.id"])
	assert.Equal(t, "simple_math_correct", metadata["test.name"])
	assert.Equal(t, "math", metadata["test.category"])
	assert.Equal(t, `["scoring","simple_math_correct"]`, metadata["langfuse.tags"])
	assert.Equal(t, "scoring-evaluator", gotBody["user"])

	messages, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
}

func TestInvokeTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "model not found"}}`, http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "key", "m")
	require.NoError(t, err)

	_, err = client.Invoke(context.Background(), InvokeRequest{UserPrompt: "hi"})
	assert.Error(t, err)
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("", "key", "m")
	assert.Error(t, err)

	_, err = NewClient("http://localhost", "", "m")
	assert.Error(t, err)

	_, err = NewClient("http://localhost", "key", "")
	assert.Error(t, err)
}

func TestNewClientFromEnv(t *testing.T) {
	t.Setenv("TEST_MODEL_URL", "http://localhost:11434/v1")
	t.Setenv("TEST_MODEL_KEY", "ollama")
	t.Setenv("TEST_MODEL_NAME", "llama3")

	cfg := &EnvConfig{
		BaseUrlKey:   "TEST_MODEL_URL",
		ApiKeyKey:    "TEST_MODEL_KEY",
		ModelNameKey: "TEST_MODEL_NAME",
	}

	client, err := NewClientFromEnv(cfg)
	require.NoError(t, err)
	assert.Equal(t, "llama3", client.ModelName())
}

func TestNewClientFromEnvMissingVars(t *testing.T) {
	cfg := &EnvConfig{
		BaseUrlKey:   "TRACECHECK_UNSET_URL",
		ApiKeyKey:    "TRACECHECK_UNSET_KEY",
		ModelNameKey: "TRACECHECK_UNSET_MODEL",
	}

	_, err := NewClientFromEnv(cfg)
	assert.Error(t, err)
}
