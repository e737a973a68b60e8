package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"ragindex/internal/domain"
	"ragindex/internal/retry"
)

// Config configures the OpenAI chat client.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// Client implements domain.Chat over the chat completions API.
type Client struct {
	client      oai.Client
	model       string
	temperature float64
	maxRetries  int
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = string(oai.ChatModelGPT4oMini)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		client:      oai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
	}, nil
}

func (c *Client) Name() string { return "openai:" + c.model }

// Complete sends the prompt as a single user message and returns the first choice.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model:    oai.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{oai.UserMessage(prompt)},
	}
	if c.temperature > 0 {
		params.Temperature = oai.Float(c.temperature)
	}
	var out string
	err := retry.Do(ctx, "openai chat", c.maxRetries, func(ctx context.Context) error {
		resp, err := c.client.Chat.Completions.New(ctx, params)
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
	var apiErr *oai.Error
	if errors.As(err, &apiErr) && retry.RetryableStatus(apiErr.StatusCode) {
		return retry.Transient(err)
	}
	if retry.IsNetwork(err) {
		return retry.Transient(err)
	}
	return err
}
