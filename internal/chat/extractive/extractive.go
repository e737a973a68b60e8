// Package extractive is an offline chat oracle: it answers a grounded prompt
// with the context sentences that best match the question.
package extractive

import (
	"context"
	"strings"

	"ragindex/internal/prompt"
	"ragindex/internal/summarizer"
)

const (
	defaultSentences = 3
	noContextReply   = "I could not find anything relevant in the indexed documents."
)

type Chat struct {
	summarizer *summarizer.FrequencySummarizer
	sentences  int
}

func New(sentences int) *Chat {
	if sentences <= 0 {
		sentences = defaultSentences
	}
	return &Chat{summarizer: summarizer.NewFrequencySummarizer(), sentences: sentences}
}

func (c *Chat) Name() string { return "extractive" }

// Complete summarizes the context of a grounded prompt. A prompt without a
// context block is treated as plain text and summarized as a whole.
func (c *Chat) Complete(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	passages, question, ok := prompt.Parse(p)
	if !ok {
		return c.summarizer.Summarize(p, "", c.sentences), nil
	}
	if strings.TrimSpace(passages) == "" {
		return noContextReply, nil
	}
	return c.summarizer.Summarize(passages, question, c.sentences), nil
}
