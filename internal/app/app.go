// Package app assembles the service from a loaded config.
package app

import (
	"context"
	"errors"
	"log/slog"

	"ragindex/internal/chat"
	"ragindex/internal/chunker"
	"ragindex/internal/config"
	"ragindex/internal/domain"
	"ragindex/internal/embedding"
	"ragindex/internal/service"
	"ragindex/internal/vectorstore"
)

// App owns the store handle behind Service.
type App struct {
	Service *service.RAGService
	store   domain.VectorStore
}

func Build(cfg *config.AppConfig) (*App, error) {
	ch, err := chunker.NewRecursiveSplitter(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	emb, err := embedding.New(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	llm, err := chat.New(cfg.Chat)
	if err != nil {
		return nil, err
	}
	st, err := vectorstore.Open(cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	if err := st.CreateIndexIfAbsent(context.Background()); err != nil {
		return nil, errors.Join(err, st.Close())
	}
	slog.Info("components ready",
		"embedder", emb.Name(), "chat", llm.Name(),
		"store", cfg.VectorStore.Type, "path", cfg.VectorStore.Path)
	svc := service.NewRAGService(ch, emb, st, llm, service.Options{
		TopK:        cfg.Retrieval.TopK,
		Concurrency: cfg.Retrieval.Concurrency,
	})
	return &App{Service: svc, store: st}, nil
}

func (a *App) Close() error { return a.store.Close() }
