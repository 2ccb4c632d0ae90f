package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/jlptquiz/internal/llm/prompts"
	"github.com/pavelanni/jlptquiz/internal/model"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

type explainResponse struct {
	Explanation string `json:"explanation"`
}

// New creates a new LLM client and loads the embedded prompt templates.
func New(baseURL, apiKey, modelName string) (*Client, error) {
	if modelName == "" {
		return nil, errors.New("llm: model name is required")
	}
	if err := prompts.Load(prompts.Templates); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}, nil
}

// Ping checks that the endpoint answers.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Explain asks the model why the correct answer of q is right, in lang.
// passage is the reading passage of q, or nil for standalone questions.
func (c *Client) Explain(ctx context.Context, q model.Question, passage *model.ReadingPassage, lang string) (string, error) {
	prompt, err := prompts.BuildExplainPrompt(lang, q, passage)
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "question_id", q.ID, "raw", raw)

	var out explainResponse
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	explanation := strings.TrimSpace(out.Explanation)
	if explanation == "" {
		return "", fmt.Errorf("LLM returned an empty explanation (raw: %s)", raw)
	}
	return explanation, nil
}
