// Package chat selects the chat oracle named in the config.
package chat

import (
	"fmt"

	"ragindex/internal/chat/compat"
	"ragindex/internal/chat/extractive"
	"ragindex/internal/chat/openai"
	"ragindex/internal/config"
	"ragindex/internal/domain"
)

func New(cfg config.ChatConfig) (domain.Chat, error) {
	switch cfg.Type {
	case "extractive", "":
		return extractive.New(cfg.MaxSentences), nil
	case "openai":
		rc := cfg.OpenAI
		if rc == nil {
			rc = &config.RemoteConfig{}
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:     rc.BaseURL,
			APIKeyEnv:   rc.APIKeyEnv,
			Model:       rc.Model,
			Temperature: rc.Temperature,
			Timeout:     rc.Timeout(),
			MaxRetries:  rc.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("openai chat: %w", err)
		}
		return client, nil
	case "compat":
		rc := cfg.Compat
		if rc == nil {
			rc = &config.RemoteConfig{}
		}
		return compat.NewClient(compat.Config{
			BaseURL:     rc.BaseURL,
			APIKeyEnv:   rc.APIKeyEnv,
			Model:       rc.Model,
			Temperature: rc.Temperature,
			Timeout:     rc.Timeout(),
			MaxRetries:  rc.MaxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("unknown chat: %s", cfg.Type)
	}
}
