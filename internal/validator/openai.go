package validator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const systemPrompt = `You review community suggestions for an educational article.
Decide whether the suggestion is a genuine improvement of the article.
Reply with a single JSON object with the keys:
  "is_valid" (boolean),
  "reason" (string, why it was rejected or any caveat),
  "updated_content" (string, the full article with the change applied, or null),
  "diff" (string, unified diff from the current to the updated article, or null),
  "description" (string, one sentence describing the change, or null).
Only return updated_content when is_valid is true and the article should change.`

var ErrEmptyCompletion = errors.New("judge returned no choices")

// OpenAIConfig configures the OpenAI-compatible judge.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// OpenAIValidator asks an OpenAI-compatible chat model for a JSON verdict.
type OpenAIValidator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIValidator(cfg OpenAIConfig) *OpenAIValidator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
		logrus.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIValidator{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
	}
}

type verdictPayload struct {
	IsValid        bool    `json:"is_valid"`
	Reason         string  `json:"reason"`
	UpdatedContent *string `json:"updated_content"`
	Diff           *string `json:"diff"`
	Description    *string `json:"description"`
}

func (o *OpenAIValidator) Validate(ctx context.Context, req Request) Verdict {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return Unavailable(fmt.Errorf("chat completion: %w", err))
	}

	if len(resp.Choices) == 0 {
		return Unavailable(ErrEmptyCompletion)
	}

	raw := resp.Choices[0].Message.Content
	logrus.Debugf("judge finished with %s", resp.Choices[0].FinishReason)

	var payload verdictPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		verdict := Unavailable(fmt.Errorf("decode verdict: %w", err))
		verdict.RawResponse = raw
		return verdict
	}

	return Normalize(req, Verdict{
		IsValid:        payload.IsValid,
		Reason:         payload.Reason,
		UpdatedContent: payload.UpdatedContent,
		Diff:           payload.Diff,
		Description:    payload.Description,
		RawResponse:    raw,
	})
}

func userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Article title: %s\n", req.DocumentTitle)
	fmt.Fprintf(&b, "Suggestion type: %s\n", req.Category.Label())
	fmt.Fprintf(&b, "Submitted by: %s\n", req.SubmitterID)
	fmt.Fprintf(&b, "Suggestion details:\n%s\n\n", req.Details)
	fmt.Fprintf(&b, "Current article:\n%s\n", req.DocumentContent)
	return b.String()
}
