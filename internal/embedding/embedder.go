// Package embedding selects the embedding oracle named in the config.
package embedding

import (
	"fmt"

	"ragindex/internal/config"
	"ragindex/internal/domain"
	"ragindex/internal/embedding/compat"
	"ragindex/internal/embedding/hashing"
	"ragindex/internal/embedding/openai"
)

// New builds the embedder for cfg.Type.
func New(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "hashing", "":
		return hashing.NewEmbedder(cfg.Hashing.Dimension), nil
	case "openai":
		rc := cfg.OpenAI
		if rc == nil {
			rc = &config.RemoteConfig{}
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:    rc.BaseURL,
			APIKeyEnv:  rc.APIKeyEnv,
			Model:      rc.Model,
			Timeout:    rc.Timeout(),
			MaxRetries: rc.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder: %w", err)
		}
		return client, nil
	case "compat":
		rc := cfg.Compat
		if rc == nil {
			rc = &config.RemoteConfig{}
		}
		return compat.NewClient(compat.Config{
			BaseURL:    rc.BaseURL,
			APIKeyEnv:  rc.APIKeyEnv,
			Model:      rc.Model,
			Timeout:    rc.Timeout(),
			MaxRetries: rc.MaxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}
