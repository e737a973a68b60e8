package domain

import (
	"errors"
	"fmt"
)

var (
	ErrIndexNotCreated   = errors.New("index not created")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrSchemaVersion     = errors.New("unsupported index schema version")
	ErrEmptyMessage      = errors.New("message is required")
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrEmptyEmbedding    = errors.New("no embedding returned")
	ErrEmptyCompletion   = errors.New("no completion returned")
)

// ChunkingError reports input that could not be split as text.
type ChunkingError struct {
	Op  string
	Err error
}

func (e *ChunkingError) Error() string { return fmt.Sprintf("chunking: %s: %v", e.Op, e.Err) }
func (e *ChunkingError) Unwrap() error { return e.Err }

// EmbeddingError wraps a failure of the embedding oracle.
type EmbeddingError struct {
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string { return fmt.Sprintf("embedding: %s: %v", e.Op, e.Err) }
func (e *EmbeddingError) Unwrap() error { return e.Err }

// StoreError wraps an I/O or consistency failure of the vector store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// RetrievalError aggregates embedding and store failures hit while answering a query.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string { return fmt.Sprintf("retrieval: %s: %v", e.Op, e.Err) }
func (e *RetrievalError) Unwrap() error { return e.Err }

// IngestError reports an ingest that did not complete cleanly. Chunks that
// were inserted before the failure remain in the index.
type IngestError struct {
	Total  int
	Failed int
	Err    error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest: %d of %d chunks failed: %v", e.Failed, e.Total, e.Err)
}
func (e *IngestError) Unwrap() error { return e.Err }

// ChatError wraps a failure of the chat oracle.
type ChatError struct {
	Op  string
	Err error
}

func (e *ChatError) Error() string { return fmt.Sprintf("chat: %s: %v", e.Op, e.Err) }
func (e *ChatError) Unwrap() error { return e.Err }
