package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient calls an OpenAI-format chat completion endpoint. With a
// custom base URL it works against self-hosted inference servers that
// speak the same protocol.
type OpenAIClient struct {
	client       *openai.Client
	model        string
	systemPrompt string
}

// NewOpenAIClient creates a client for the given endpoint. baseURL may
// be empty to use the official OpenAI API.
func NewOpenAIClient(apiKey, baseURL, model, systemPrompt string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:       openai.NewClientWithConfig(config),
		model:        model,
		systemPrompt: systemPrompt,
	}
}

// Translate sends the source text and parses the language-code map out
// of the model's reply.
func (c *OpenAIClient) Translate(ctx context.Context, sourceText string) (map[string]string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: c.systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: sourceText,
			},
		},
		Temperature: 0.2,
		MaxTokens:   8192,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completion returned")
	}

	return parseTranslations(resp.Choices[0].Message.Content)
}

// parseTranslations extracts and decodes the language-code map from a
// raw model reply.
func parseTranslations(raw string) (map[string]string, error) {
	payload, err := ExtractJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}
	var translations map[string]string
	if err := json.Unmarshal([]byte(payload), &translations); err != nil {
		return nil, fmt.Errorf("failed to decode translations: %w", err)
	}
	for lang, text := range translations {
		translations[lang] = strings.TrimSpace(text)
	}
	return translations, nil
}
