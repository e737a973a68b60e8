package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"ragindex/internal/domain"
	"ragindex/internal/vector"
)

const schemaVersion = 1

// Storage is an in-process index. It has the same lifecycle as the bolt store
// and loses everything when the process exits.
type Storage struct {
	mu         sync.RWMutex
	created    bool
	generation uint64
	dimension  int
	records    []domain.Record
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) CreateIndexIfAbsent(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &domain.StoreError{Op: "create", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.created {
		s.created = true
		s.generation = 1
	}
	return nil
}

func (s *Storage) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &domain.StoreError{Op: "reset", Err: err}
	}
	s.mu.Lock()
	s.created = true
	s.generation++
	s.dimension = 0
	s.records = nil
	gen := s.generation
	s.mu.Unlock()
	slog.Info("index reset", "generation", gen)
	return nil
}

func (s *Storage) Insert(ctx context.Context, vec []float64, meta domain.Metadata) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, &domain.StoreError{Op: "insert", Err: err}
	}
	if len(vec) == 0 {
		return domain.Record{}, &domain.StoreError{Op: "insert", Err: fmt.Errorf("%w: empty vector", domain.ErrDimensionMismatch)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.created {
		return domain.Record{}, &domain.StoreError{Op: "insert", Err: domain.ErrIndexNotCreated}
	}
	if s.dimension == 0 {
		s.dimension = len(vec)
	} else if s.dimension != len(vec) {
		return domain.Record{}, &domain.StoreError{Op: "insert",
			Err: fmt.Errorf("%w: index has %d, got %d", domain.ErrDimensionMismatch, s.dimension, len(vec))}
	}
	rec := domain.Record{
		ID:       uuid.NewString(),
		Vector:   append([]float64(nil), vec...),
		Norm:     vector.Norm(vec),
		Metadata: meta,
	}
	s.records = append(s.records, rec)
	return rec, nil
}

// ListAll returns copies, so callers cannot mutate stored vectors.
func (s *Storage) ListAll(ctx context.Context) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StoreError{Op: "list", Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Record, len(s.records))
	for i, r := range s.records {
		r.Vector = append([]float64(nil), r.Vector...)
		out[i] = r
	}
	return out, nil
}

func (s *Storage) Info(ctx context.Context) (domain.IndexInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.IndexInfo{}, &domain.StoreError{Op: "info", Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.created {
		return domain.IndexInfo{}, nil
	}
	return domain.IndexInfo{
		Created:       true,
		SchemaVersion: schemaVersion,
		Generation:    s.generation,
		Dimension:     s.dimension,
		Count:         len(s.records),
	}, nil
}

func (s *Storage) Close() error { return nil }
