package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"ragindex/internal/chunker"
	"ragindex/internal/domain"
	"ragindex/internal/prompt"
	"ragindex/internal/ranker"
	"ragindex/internal/vector"
)

const (
	defaultTopK        = 3
	defaultConcurrency = 8
)

// Options tunes retrieval and ingest. Zero values pick the defaults.
type Options struct {
	TopK        int
	Concurrency int
}

// Answer is the result of a grounded question.
type Answer struct {
	Context  string          `json:"context"`
	Passages []ranker.Scored `json:"passages"`
	Response string          `json:"response"`
}

type RAGService struct {
	chunker     domain.Chunker
	embedder    domain.Embedder
	store       domain.VectorStore
	chat        domain.Chat
	topK        int
	concurrency int
}

func NewRAGService(c domain.Chunker, e domain.Embedder, store domain.VectorStore, chat domain.Chat, opts Options) *RAGService {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &RAGService{
		chunker:     c,
		embedder:    e,
		store:       store,
		chat:        chat,
		topK:        opts.TopK,
		concurrency: opts.Concurrency,
	}
}

// Ingest splits document, embeds every chunk and stores it. Chunks are
// processed concurrently and the call waits for all of them. When any chunk
// fails the result is an *domain.IngestError listing every failure; the
// chunks that did succeed stay in the index. It returns the number of chunks
// stored.
//
// The per-chunk work is detached from ctx cancellation: a caller that gives
// up does not stop embeds and inserts already started.
func (s *RAGService) Ingest(ctx context.Context, document string) (int, error) {
	text := chunker.Normalize(document)
	if err := s.store.CreateIndexIfAbsent(ctx); err != nil {
		return 0, err
	}
	chunks, err := s.chunker.Chunks(text)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		slog.Info("nothing to ingest")
		return 0, nil
	}

	work := context.WithoutCancel(ctx)
	errs := make([]error, len(chunks))
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, ch := range chunks {
		i, ch := i, ch
		g.Go(func() error {
			vec, err := s.embedder.Embed(work, ch.Text)
			if err != nil {
				errs[i] = fmt.Errorf("chunk %d: %w", ch.Index, err)
				return nil
			}
			if _, err := s.store.Insert(work, vec, domain.Metadata{Text: ch.Text}); err != nil {
				errs[i] = fmt.Errorf("chunk %d: %w", ch.Index, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	stored := len(chunks) - failed
	if failed > 0 {
		slog.Warn("ingest incomplete", "chunks", len(chunks), "failed", failed, "embedder", s.embedder.Name())
		return stored, &domain.IngestError{Total: len(chunks), Failed: failed, Err: errors.Join(errs...)}
	}
	slog.Info("document ingested", "chunks", stored, "embedder", s.embedder.Name())
	return stored, nil
}

// Retrieve returns the topK passages most similar to query, best first. A
// non-positive topK uses the configured default. Duplicate passage texts are
// ranked once.
func (s *RAGService) Retrieve(ctx context.Context, query string, topK int) ([]ranker.Scored, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyMessage
	}
	if topK <= 0 {
		topK = s.topK
	}
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, &domain.RetrievalError{Op: "list", Err: err}
	}
	seen := make(map[string]struct{}, len(records))
	corpus := make([]ranker.Candidate, 0, len(records))
	for _, r := range records {
		if _, dup := seen[r.Metadata.Text]; dup {
			continue
		}
		seen[r.Metadata.Text] = struct{}{}
		corpus = append(corpus, ranker.Candidate{Text: r.Metadata.Text, Embedding: vector.New(r.Vector)})
	}

	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &domain.RetrievalError{Op: "embed query", Err: err}
	}
	q := vector.New(qv)
	for _, c := range corpus {
		if c.Embedding.Dim() != q.Dim() {
			return nil, &domain.RetrievalError{Op: "rank",
				Err: fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, q.Dim(), c.Embedding.Dim())}
		}
	}

	top := ranker.Top(ranker.Rank(q, corpus), topK)
	slog.Debug("retrieved", "candidates", len(corpus), "returned", len(top))
	return top, nil
}

// BuildContext joins passages, verbatim and in the given order, into the
// grounding block handed to the chat oracle.
func (s *RAGService) BuildContext(passages []string) string {
	return prompt.Context(passages)
}

// Ask answers message from the most similar indexed passages.
func (s *RAGService) Ask(ctx context.Context, message string) (Answer, error) {
	if strings.TrimSpace(message) == "" {
		return Answer{}, domain.ErrEmptyMessage
	}
	top, err := s.Retrieve(ctx, message, 0)
	if err != nil {
		return Answer{}, err
	}
	block := s.BuildContext(ranker.Texts(top))
	resp, err := s.chat.Complete(ctx, prompt.Grounded(block, message))
	if err != nil {
		return Answer{}, err
	}
	return Answer{Context: block, Passages: top, Response: resp}, nil
}

// Chat forwards message to the chat oracle without retrieval.
func (s *RAGService) Chat(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", domain.ErrEmptyMessage
	}
	return s.chat.Complete(ctx, message)
}

// Inspect lists every stored record.
func (s *RAGService) Inspect(ctx context.Context) ([]domain.Record, error) {
	return s.store.ListAll(ctx)
}

func (s *RAGService) Info(ctx context.Context) (domain.IndexInfo, error) {
	return s.store.Info(ctx)
}

// Reset empties the index.
func (s *RAGService) Reset(ctx context.Context) error {
	return s.store.Reset(ctx)
}
