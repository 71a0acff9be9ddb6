package scoring

import (
	"bytes"
	"text/template"
)

var (
	judgeSystemTemplate = template.Must(template.New("judgeSystem").Parse(
		`You are a strict evaluator of generative-model answers. Your one and only job is to grade a [MODEL_RESPONSE] against a [REFERENCE_ANSWER].

### Rubric
* **1.0**: the response conveys the full meaning of the reference answer. Phrasing, format and extra correct detail do not matter.
* **0.5**: the response is partially correct, hedges, or mixes correct and incorrect claims.
* **0.0**: the response contradicts the reference answer or omits its core content.
* Intermediate values are allowed when partial credit is clearly warranted.

<reference_answer>
{{.ReferenceAnswer}}
</reference_answer>

You MUST reply with a single JSON object and nothing else:
{"score": <number between 0.0 and 1.0>, "reasoning": "<one or two sentences>"}
`))

	judgeUserTemplate = template.Must(template.New("judgeUser").Parse(
		`<model_response>
{{.ModelResponse}}
</model_response>

Grade the content of <model_response> against the reference answer using the rubric. Respond with the JSON object only.
`))
)

// JudgeSystemPromptData fills the judge's system prompt template.
type JudgeSystemPromptData struct {
	ReferenceAnswer string
}

// JudgeUserPromptData fills the judge's user prompt template.
type JudgeUserPromptData struct {
	ModelResponse string
}

// BuildJudgeSystemPrompt renders the rubric prompt for a reference answer.
func BuildJudgeSystemPrompt(data JudgeSystemPromptData) (string, error) {
	var out bytes.Buffer
	if err := judgeSystemTemplate.Execute(&out, data); err != nil {
		return "", err
	}
	return out.String(), nil
}

// BuildJudgeUserPrompt renders the response under evaluation.
func BuildJudgeUserPrompt(data JudgeUserPromptData) (string, error) {
	var out bytes.Buffer
	if err := judgeUserTemplate.Execute(&out, data); err != nil {
		return "", err
	}
	return out.String(), nil
}
