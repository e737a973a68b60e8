package domain

import "context"

// Chunk is a bounded slice of a document used as the retrieval unit.
type Chunk struct {
	Text  string
	Index int
}

// Metadata is the payload stored next to each vector.
type Metadata struct {
	Text string `json:"text"`
}

// Record is one persisted entry of the index.
type Record struct {
	ID       string    `json:"id"`
	Vector   []float64 `json:"vector"`
	Norm     float64   `json:"norm"`
	Metadata Metadata  `json:"metadata"`
}

// IndexInfo describes the current state of an index for diagnostics.
type IndexInfo struct {
	Created       bool   `json:"created"`
	SchemaVersion int    `json:"schema_version"`
	Generation    uint64 `json:"generation"`
	Dimension     int    `json:"dimension"`
	Count         int    `json:"count"`
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunks(document string) ([]Chunk, error)
}

// Embedder converts free text into a numeric vector representation.
// Implementations must be safe for concurrent use.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float64, error)
}

// VectorStore is an append-only collection of records with an explicit
// create/reset lifecycle.
type VectorStore interface {
	CreateIndexIfAbsent(ctx context.Context) error
	Reset(ctx context.Context) error
	Insert(ctx context.Context, vector []float64, meta Metadata) (Record, error)
	ListAll(ctx context.Context) ([]Record, error)
	Info(ctx context.Context) (IndexInfo, error)
	Close() error
}

// Chat is the language-model oracle: prompt in, response out.
type Chat interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}
