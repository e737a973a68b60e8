// Package compat talks to OpenAI-compatible embedding servers such as
// llama.cpp's server or Ollama's /v1 endpoint.
package compat

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"ragindex/internal/domain"
	"ragindex/internal/retry"
	"ragindex/internal/vector"
)

// Config configures the client. The API key is optional for local servers.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Client implements domain.Embedder over the go-openai client.
type Client struct {
	client     *goopenai.Client
	model      string
	maxRetries int
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	var key string
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	oc := goopenai.DefaultConfig(key)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Client{
		client:     goopenai.NewClientWithConfig(oc),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
	}
}

func (c *Client) Name() string { return "compat:" + c.model }

func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	var vec []float64
	err := retry.Do(ctx, "compat embeddings", c.maxRetries, func(ctx context.Context) error {
		resp, err := c.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
			Input: []string{text},
			Model: goopenai.EmbeddingModel(c.model),
		})
		if err != nil {
			return classify(err)
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return domain.ErrEmptyEmbedding
		}
		vec = vector.Float64s(resp.Data[0].Embedding)
		return nil
	})
	if err != nil {
		return nil, &domain.EmbeddingError{Op: c.Name(), Err: err}
	}
	return vec, nil
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
