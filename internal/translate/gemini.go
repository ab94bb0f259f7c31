package translate

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient calls the Gemini API through the official SDK.
type GeminiClient struct {
	client       *genai.Client
	model        string
	systemPrompt string
}

// NewGeminiClient creates a Gemini-backed translator.
func NewGeminiClient(ctx context.Context, apiKey, model, systemPrompt string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{
		client:       client,
		model:        model,
		systemPrompt: systemPrompt,
	}, nil
}

// Translate sends the source text and parses the language-code map out
// of the model's reply.
func (c *GeminiClient) Translate(ctx context.Context, sourceText string) (map[string]string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(c.systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.2),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(sourceText), config)
	if err != nil {
		return nil, fmt.Errorf("Gemini request failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty Gemini response")
	}
	return parseTranslations(text)
}
