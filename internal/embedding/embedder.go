// Package embedding selects an Embedder implementation from configuration.
package embedding

import (
	"context"
	"fmt"
	"time"

	"docrag/internal/config"
	"docrag/internal/domain"
	"docrag/internal/embedding/gemini"
	"docrag/internal/embedding/hashing"
	"docrag/internal/embedding/openai"
)

// New builds the embedder named by cfg.Type. Embedders holding network
// clients also implement io.Closer.
func New(ctx context.Context, cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("%w: openai embedder config missing", domain.ErrInvalidConfig)
		}
		return openai.NewClient(openai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Dimension:  cfg.Dimension,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
	case "gemini":
		if cfg.Gemini == nil {
			return nil, fmt.Errorf("%w: gemini embedder config missing", domain.ErrInvalidConfig)
		}
		return gemini.NewEmbedder(ctx, gemini.Config{
			APIKeyEnv: cfg.Gemini.APIKeyEnv,
			Model:     cfg.Gemini.Model,
			Dimension: cfg.Dimension,
		})
	case "hashing":
		return hashing.NewEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedder %q", domain.ErrInvalidConfig, cfg.Type)
	}
}
