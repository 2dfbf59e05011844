package embedding

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/config"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// New selects the embedding provider named by cfg.Provider.
func New(cfg config.EmbedderConfig, logger *zap.Logger) (ports.EmbeddingService, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllamaAdapter(cfg.BaseURL, cfg.Model, cfg.Timeout, logger), nil
	case "openai":
		return NewOpenAIAdapter(OpenAIConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BatchSize: cfg.BatchSize,
			Timeout:   cfg.Timeout,
			Logger:    logger,
		})
	case "hashing":
		return NewHashingEmbedder(cfg.Dimensions), nil
	}
	return nil, fmt.Errorf("unsupported embedder provider %q", cfg.Provider)
}
