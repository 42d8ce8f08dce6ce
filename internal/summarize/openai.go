// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint.
// Setting BaseURL points it at any compatible provider.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator for apiKey. Empty baseURL keeps the
// library default; empty model uses gpt-4o-mini.
func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}
}

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(p.Category)},
			{Role: openai.ChatMessageRoleUser, Content: p.Text},
		},
		Temperature: float32(p.Temperature),
		MaxTokens:   p.MaxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("openai %s (HTTP %d): %w", p.Category, apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("openai %s: %w", p.Category, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai %s: empty response", p.Category)
	}
	return resp.Choices[0].Message.Content, nil
}

// systemPrompt sets the assistant role per prompt category.
func systemPrompt(c Category) string {
	switch c {
	case CategorySourceSummary:
		return "You are a research assistant who writes short, factual summaries of web articles."
	default:
		return "You are a senior market research analyst who writes structured, data-driven reports."
	}
}
