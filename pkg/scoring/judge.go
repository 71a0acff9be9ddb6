package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

// Judge grades a response against a reference answer with a secondary model
// call. Its free-form reply is an untrusted boundary; parsing happens in the
// llm_judge strategy, not here.
type Judge interface {
	ModelName() string
	Grade(ctx context.Context, reference, response string) (string, error)
}

// JudgeConfig resolves the judge model endpoint from environment variable
// names, so secrets stay out of config files.
type JudgeConfig struct {
	Env *JudgeEnvConfig `json:"env,omitempty"`
}

type JudgeEnvConfig struct {
	BaseUrlKey   string `json:"baseUrlKey"`
	ApiKeyKey    string `json:"apiKeyKey"`
	ModelNameKey string `json:"modelNameKey"`
}

func (cfg *JudgeConfig) BaseUrl() string {
	return os.Getenv(cfg.Env.BaseUrlKey)
}

func (cfg *JudgeConfig) ApiKey() string {
	return os.Getenv(cfg.Env.ApiKeyKey)
}

func (cfg *JudgeConfig) ModelName() string {
	return os.Getenv(cfg.Env.ModelNameKey)
}

type openaiJudge struct {
	client *openai.Client
	model  shared.ChatModel
}

var _ Judge = &openaiJudge{}

// NewJudge creates a Judge backed by an OpenAI-compatible endpoint.
func NewJudge(cfg *JudgeConfig) (Judge, error) {
	if cfg == nil || cfg.Env == nil {
		return nil, fmt.Errorf("judge config with env keys is required")
	}

	baseUrl := cfg.BaseUrl()
	apiKey := cfg.ApiKey()
	model := cfg.ModelName()
	if baseUrl == "" || apiKey == "" || model == "" {
		return nil, fmt.Errorf("judge env vars %s, %s and %s must all be set",
			cfg.Env.BaseUrlKey, cfg.Env.ApiKeyKey, cfg.Env.ModelNameKey)
	}

	client := openai.NewClient(
		option.WithBaseURL(baseUrl),
		option.WithAPIKey(apiKey),
	)

	return &openaiJudge{
		client: &client,
		model:  shared.ChatModel(model),
	}, nil
}

func (j *openaiJudge) ModelName() string {
	return string(j.model)
}

func (j *openaiJudge) Grade(ctx context.Context, reference, response string) (string, error) {
	systemPrompt, err := BuildJudgeSystemPrompt(JudgeSystemPromptData{ReferenceAnswer: reference})
	if err != nil {
		return "", fmt.Errorf("failed to build judge system prompt: %w", err)
	}

	userPrompt, err := BuildJudgeUserPrompt(JudgeUserPromptData{ModelResponse: response})
	if err != nil {
		return "", fmt.Errorf("failed to build judge user prompt: %w", err)
	}

	completion, err := j.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: j.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("judge completion failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("judge returned no completion choices")
	}

	return completion.Choices[0].Message.Content, nil
}

type judgeContextKey struct{}

// WithJudge attaches a judge to the context for the llm_judge strategy.
func WithJudge(ctx context.Context, judge Judge) context.Context {
	return context.WithValue(ctx, judgeContextKey{}, judge)
}

// JudgeFromContext retrieves the judge attached with WithJudge.
func JudgeFromContext(ctx context.Context) (Judge, bool) {
	judge, ok := ctx.Value(judgeContextKey{}).(Judge)
	return judge, ok
}

// LLMJudgeStrategy delegates scoring to the context-attached judge and
// parses its reply defensively: any malformed output degrades to a neutral
// 0.5 with the parse failure spelled out, never an error.
type LLMJudgeStrategy struct{}

var _ Strategy = &LLMJudgeStrategy{}

func (s *LLMJudgeStrategy) Name() string {
	return MethodLLMJudge
}

func (s *LLMJudgeStrategy) Score(ctx context.Context, response string, p Params) (float64, string) {
	judge, ok := JudgeFromContext(ctx)
	if !ok {
		return 0.5, "No judge configured; defaulting to neutral score"
	}

	reply, err := judge.Grade(ctx, p.Expected, response)
	if err != nil {
		return 0.5, fmt.Sprintf("Judge call failed (%v); defaulting to neutral score", err)
	}

	verdict, err := parseJudgeReply(reply)
	if err != nil {
		return 0.5, fmt.Sprintf("Failed to parse judge output (%v); defaulting to neutral score", err)
	}

	return verdict.Score, verdict.Reasoning
}

type judgeVerdict struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// parseJudgeReply pulls a {score, reasoning} object out of the judge's
// reply, tolerating code fences and surrounding prose.
func parseJudgeReply(reply string) (*judgeVerdict, error) {
	payload := extractJSONObject(reply)
	if payload == "" {
		return nil, fmt.Errorf("no JSON object in judge reply")
	}

	raw := struct {
		Score     *float64 `json:"score"`
		Reasoning string   `json:"reasoning"`
	}{}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON in judge reply: %w", err)
	}
	if raw.Score == nil {
		return nil, fmt.Errorf("judge reply is missing a score")
	}

	reasoning := raw.Reasoning
	if reasoning == "" {
		reasoning = "Judge provided no reasoning"
	}

	return &judgeVerdict{Score: *raw.Score, Reasoning: reasoning}, nil
}

func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
