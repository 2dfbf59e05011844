package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/config"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// New selects the language model provider named by cfg.Provider.
func New(cfg config.LLMConfig, logger *zap.Logger) (ports.LLMService, error) {
	opts := Options{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}
	switch cfg.Provider {
	case "openai", "groq":
		return NewOpenAI(OpenAIConfig{
			Name:    cfg.Provider,
			APIKey:  cfg.APIKey,
			APIBase: cfg.BaseURL,
			Model:   cfg.Model,
			Options: opts,
			Timeout: cfg.Timeout,
			Logger:  logger,
		})
	case "ollama":
		return NewOllamaLLMAdapter(cfg.BaseURL, cfg.Model, opts, cfg.Timeout, logger), nil
	}
	return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
}
