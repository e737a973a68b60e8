package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"ragindex/internal/domain"
	"ragindex/internal/retry"
)

// Client is an OpenAI embeddings client implementing domain.Embedder.
type Client struct {
	client     oai.Client
	model      string
	maxRetries int
}

// Config configures the OpenAI embeddings client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = string(oai.EmbeddingModelTextEmbedding3Small)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	// retries are driven by internal/retry so the SDK's own loop is disabled
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		client:     oai.NewClient(opts...),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai:" + c.model }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	var vec []float64
	err := retry.Do(ctx, "openai embeddings", c.maxRetries, func(ctx context.Context) error {
		resp, err := c.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
			Input: oai.EmbeddingNewParamsInputUnion{OfString: oai.String(text)},
			Model: oai.EmbeddingModel(c.model),
		})
		if err != nil {
			return classify(err)
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return domain.ErrEmptyEmbedding
		}
		vec = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, &domain.EmbeddingError{Op: c.Name(), Err: err}
	}
	return vec, nil
}

func classify(err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) && retry.RetryableStatus(apiErr.StatusCode) {
		return retry.Transient(err)
	}
	if retry.IsNetwork(err) {
		return retry.Transient(err)
	}
	return err
}
