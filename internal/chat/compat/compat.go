// Package compat talks to OpenAI-compatible chat servers (llama.cpp, Ollama).
package compat

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"ragindex/internal/domain"
	"ragindex/internal/retry"
)

type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

type Client struct {
	client      *goopenai.Client
	model       string
	temperature float32
	maxRetries  int
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.2:3b"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	var key string
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	oc := goopenai.DefaultConfig(key)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Client{
		client:      goopenai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxRetries:  cfg.MaxRetries,
	}
}

func (c *Client) Name() string { return "compat:" + c.model }

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	}
	var out string
	err := retry.Do(ctx, "compat chat", c.maxRetries, func(ctx context.Context) error {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return classify(err)
		}
		if len(resp.Choices) == 0 {
			return domain.ErrEmptyCompletion
		}
		out = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", &domain.ChatError{Op: c.Name(), Err: err}
	}
	return out, nil
}

func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && retry.RetryableStatus(apiErr.HTTPStatusCode) {
		return retry.Transient(err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && retry.RetryableStatus(reqErr.HTTPStatusCode) {
		return retry.Transient(err)
	}
	if retry.IsNetwork(err) {
		return retry.Transient(err)
	}
	return err
}
