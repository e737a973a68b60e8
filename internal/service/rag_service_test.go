package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragindex/internal/chunker"
	"ragindex/internal/domain"
	"ragindex/internal/ranker"
	"ragindex/internal/vectorstore/memory"
)

type fakeEmbedder struct {
	vecs    map[string][]float64
	fail    map[string]error
	onEmbed func()
}

func (f *fakeEmbedder) Name() string { return "fake" }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if f.onEmbed != nil {
		f.onEmbed()
	}
	if err, ok := f.fail[text]; ok {
		return nil, &domain.EmbeddingError{Op: "fake", Err: err}
	}
	if v, ok := f.vecs[text]; ok {
		return v, nil
	}
	return []float64{1, 1, 1}, nil
}

type fakeChat struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (f *fakeChat) Name() string { return "fake" }

func (f *fakeChat) Complete(_ context.Context, p string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	return f.reply, f.err
}

type fixedChunker []string

func (c fixedChunker) Chunks(string) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, len(c))
	for i, t := range c {
		out[i] = domain.Chunk{Text: t, Index: i}
	}
	return out, nil
}

const (
	cats    = "cats are small mammals"
	rockets = "rockets launch into orbit"
	dogs    = "dogs are loyal pets"
	query   = "tell me about pets"
)

func petsEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vecs: map[string][]float64{
		cats:    {1, 0, 0.2},
		rockets: {0, 1, 0},
		dogs:    {0.1, 0, 1},
		query:   {0, 0, 1},
	}}
}

func seed(t *testing.T, store domain.VectorStore, e domain.Embedder, texts ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateIndexIfAbsent(ctx))
	for _, txt := range texts {
		v, err := e.Embed(ctx, txt)
		require.NoError(t, err)
		_, err = store.Insert(ctx, v, domain.Metadata{Text: txt})
		require.NoError(t, err)
	}
}

func newSplitter(t *testing.T) *chunker.RecursiveSplitter {
	t.Helper()
	sp, err := chunker.NewRecursiveSplitter(500, 100)
	require.NoError(t, err)
	return sp
}

func TestIngest_SingleShortDocument(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStorage()
	svc := NewRAGService(newSplitter(t), &fakeEmbedder{}, store, &fakeChat{}, Options{})

	n, err := svc.Ingest(ctx, "  A cat sat. A dog ran.\n")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	recs, err := svc.Inspect(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "A cat sat. A dog ran.", recs[0].Metadata.Text)
}

func TestIngest_NewlinesBecomeSpaces(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStorage()
	svc := NewRAGService(newSplitter(t), &fakeEmbedder{}, store, &fakeChat{}, Options{})

	_, err := svc.Ingest(ctx, "first line\r\nsecond line\nthird")
	require.NoError(t, err)
	recs, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "first line second line third", recs[0].Metadata.Text)
}

func TestIngest_EmptyDocumentCreatesIndexOnly(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStorage()
	svc := NewRAGService(newSplitter(t), &fakeEmbedder{}, store, &fakeChat{}, Options{})

	n, err := svc.Ingest(ctx, " \n ")
	require.NoError(t, err)
	assert.Zero(t, n)
	info, err := svc.Info(ctx)
	require.NoError(t, err)
	assert.True(t, info.Created)
	assert.Zero(t, info.Count)
}

func TestIngest_PartialFailureIsAggregated(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStorage()
	boom := errors.New("oracle exploded")
	e := &fakeEmbedder{fail: map[string]error{"two": boom, "four": boom}}
	svc := NewRAGService(fixedChunker{"one", "two", "three", "four"}, e, store, &fakeChat{}, Options{Concurrency: 2})

	n, err := svc.Ingest(ctx, "ignored")
	assert.Equal(t, 2, n)
	var ierr *domain.IngestError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, 4, ierr.Total)
	assert.Equal(t, 2, ierr.Failed)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "chunk 1")
	assert.Contains(t, err.Error(), "chunk 3")

	var eerr *domain.EmbeddingError
	assert.True(t, errors.As(err, &eerr))

	recs, err := store.ListAll(ctx)
	require.NoError(t, err)
	var texts []string
	for _, r := range recs {
		texts = append(texts, r.Metadata.Text)
	}
	assert.ElementsMatch(t, []string{"one", "three"}, texts)
}

func TestIngest_CallerCancellationDoesNotStopWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := memory.NewStorage()
	e := &fakeEmbedder{onEmbed: cancel}
	svc := NewRAGService(fixedChunker{"a", "b", "c"}, e, store, &fakeChat{}, Options{Concurrency: 1})

	n, err := svc.Ingest(ctx, "ignored")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	recs, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestIngest_ChunkingErrorSurfaces(t *testing.T) {
	svc := NewRAGService(newSplitter(t), &fakeEmbedder{}, memory.NewStorage(), &fakeChat{}, Options{})
	_, err := svc.Ingest(context.Background(), "bad \xff bytes")
	var cerr *domain.ChunkingError
	assert.True(t, errors.As(err, &cerr))
}

func TestRetrieve_MostSimilarFirst(t *testing.T) {
	e := petsEmbedder()
	store := memory.NewStorage()
	seed(t, store, e, cats, rockets, dogs)
	svc := NewRAGService(newSplitter(t), e, store, &fakeChat{}, Options{})

	top, err := svc.Retrieve(context.Background(), query, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{dogs}, ranker.Texts(top))

	all, err := svc.Retrieve(context.Background(), query, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{dogs, cats, rockets}, ranker.Texts(all))
}

func TestRetrieve_TopKLargerThanCorpus(t *testing.T) {
	e := petsEmbedder()
	store := memory.NewStorage()
	seed(t, store, e, cats, dogs)
	svc := NewRAGService(newSplitter(t), e, store, &fakeChat{}, Options{})

	top, err := svc.Retrieve(context.Background(), query, 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{cats, dogs}, ranker.Texts(top))
}

func TestRetrieve_DefaultTopKAndDedupe(t *testing.T) {
	e := petsEmbedder()
	store := memory.NewStorage()
	seed(t, store, e, dogs, dogs, cats, rockets, "extra passage")
	svc := NewRAGService(newSplitter(t), e, store, &fakeChat{}, Options{})

	top, err := svc.Retrieve(context.Background(), query, 0)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, dogs, top[0].Text)
	assert.NotEqual(t, dogs, top[1].Text)
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	svc := NewRAGService(newSplitter(t), petsEmbedder(), memory.NewStorage(), &fakeChat{}, Options{})
	top, err := svc.Retrieve(context.Background(), query, 3)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestRetrieve_QueryEmbeddingFailure(t *testing.T) {
	e := petsEmbedder()
	store := memory.NewStorage()
	seed(t, store, e, cats, rockets, dogs)
	e.fail = map[string]error{"%%malformed%%": errors.New("cannot embed")}
	svc := NewRAGService(newSplitter(t), e, store, &fakeChat{}, Options{})

	top, err := svc.Retrieve(context.Background(), "%%malformed%%", 3)
	assert.Nil(t, top)
	var rerr *domain.RetrievalError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "embed query", rerr.Op)
	var eerr *domain.EmbeddingError
	assert.True(t, errors.As(err, &eerr))
}

func TestRetrieve_DimensionMismatch(t *testing.T) {
	e := petsEmbedder()
	store := memory.NewStorage()
	seed(t, store, e, cats)
	e.vecs[query] = []float64{1, 0}
	svc := NewRAGService(newSplitter(t), e, store, &fakeChat{}, Options{})

	_, err := svc.Retrieve(context.Background(), query, 1)
	var rerr *domain.RetrievalError
	require.True(t, errors.As(err, &rerr))
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	svc := NewRAGService(newSplitter(t), petsEmbedder(), memory.NewStorage(), &fakeChat{}, Options{})
	_, err := svc.Retrieve(context.Background(), "   ", 1)
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
}

func TestAsk_GroundsPromptInRankedPassages(t *testing.T) {
	e := petsEmbedder()
	store := memory.NewStorage()
	seed(t, store, e, cats, rockets, dogs)
	chat := &fakeChat{reply: "Dogs."}
	svc := NewRAGService(newSplitter(t), e, store, chat, Options{TopK: 2})

	ans, err := svc.Ask(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, "Dogs.", ans.Response)
	assert.Equal(t, []string{dogs, cats}, ranker.Texts(ans.Passages))
	assert.Equal(t, "Similar documents: "+dogs+", "+cats, ans.Context)

	require.Len(t, chat.prompts, 1)
	assert.Contains(t, chat.prompts[0], ans.Context)
	assert.True(t, strings.Contains(chat.prompts[0], "Question: "+query))
}

func TestAsk_ChatFailure(t *testing.T) {
	e := petsEmbedder()
	store := memory.NewStorage()
	seed(t, store, e, dogs)
	chatErr := &domain.ChatError{Op: "fake", Err: errors.New("offline")}
	svc := NewRAGService(newSplitter(t), e, store, &fakeChat{err: chatErr}, Options{})

	_, err := svc.Ask(context.Background(), query)
	var cerr *domain.ChatError
	assert.True(t, errors.As(err, &cerr))
}

func TestChat_NoRetrieval(t *testing.T) {
	chat := &fakeChat{reply: "hi!"}
	svc := NewRAGService(newSplitter(t), petsEmbedder(), memory.NewStorage(), chat, Options{})

	got, err := svc.Chat(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi!", got)
	assert.Equal(t, []string{"hello"}, chat.prompts)

	_, err = svc.Chat(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
}

func TestReset_EmptiesIndex(t *testing.T) {
	ctx := context.Background()
	e := petsEmbedder()
	store := memory.NewStorage()
	seed(t, store, e, cats, dogs)
	svc := NewRAGService(newSplitter(t), e, store, &fakeChat{}, Options{})

	require.NoError(t, svc.Reset(ctx))
	recs, err := svc.Inspect(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
