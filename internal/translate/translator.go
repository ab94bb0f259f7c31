package translate

import (
	"context"
	"fmt"
)

// Translator turns a source text into a mapping from language code to
// translated text. A nil error with an empty map is a valid "nothing
// translated" answer; callers treat any error as "no translation
// applied this round" and continue.
type Translator interface {
	Translate(ctx context.Context, sourceText string) (map[string]string, error)
}

// Config selects and configures a translation provider.
type Config struct {
	Provider     string // "openai" or "gemini"
	APIKey       string
	BaseURL      string // OpenAI-format endpoint override, optional
	Model        string
	SystemPrompt string
}

// New creates the configured provider client wrapped in a circuit
// breaker.
func New(ctx context.Context, cfg Config) (Translator, error) {
	var inner Translator
	switch cfg.Provider {
	case "openai":
		inner = NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.SystemPrompt)
	case "gemini":
		client, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.SystemPrompt)
		if err != nil {
			return nil, err
		}
		inner = client
	default:
		return nil, fmt.Errorf("unknown translation provider: %s", cfg.Provider)
	}
	return NewBreaker(inner), nil
}
