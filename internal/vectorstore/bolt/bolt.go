// Package bolt keeps the index in a single bbolt file.
//
// Layout: bucket "meta" holds schema_version, generation and dimension as
// big-endian uint64 plus created_at (RFC 3339). Bucket "records" maps the
// bucket sequence number (big-endian, so cursor order is insertion order) to
// the JSON-encoded domain.Record.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"ragindex/internal/domain"
	"ragindex/internal/vector"
)

// SchemaVersion is the on-disk layout version written by this package.
const SchemaVersion = 1

var (
	bucketMeta    = []byte("meta")
	bucketRecords = []byte("records")

	keySchema     = []byte("schema_version")
	keyGeneration = []byte("generation")
	keyDimension  = []byte("dimension")
	keyCreatedAt  = []byte("created_at")
)

type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the file at path. It does not create the index;
// call CreateIndexIfAbsent for that. A file written with another schema
// version is rejected.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, &domain.StoreError{Op: "open", Err: err}
	}
	err = db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta == nil {
			return nil
		}
		if v := getUint(meta, keySchema); v != SchemaVersion {
			return fmt.Errorf("%w: file has %d, want %d", domain.ErrSchemaVersion, v, SchemaVersion)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, &domain.StoreError{Op: "open", Err: err}
	}
	return &Store{db: db}, nil
}

func (s *Store) CreateIndexIfAbsent(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &domain.StoreError{Op: "create", Err: err}
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketRecords); err != nil {
			return err
		}
		if meta.Get(keySchema) != nil {
			return nil
		}
		slog.Info("creating index", "path", s.db.Path(), "schema_version", SchemaVersion)
		return writeFreshMeta(meta, 1)
	})
	if err != nil {
		return &domain.StoreError{Op: "create", Err: err}
	}
	return nil
}

// Reset drops every record and starts a new generation in one write
// transaction, so readers see either the old index or the empty new one.
func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &domain.StoreError{Op: "reset", Err: err}
	}
	var gen uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketRecords); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		if _, err := tx.CreateBucket(bucketRecords); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		gen = getUint(meta, keyGeneration) + 1
		return writeFreshMeta(meta, gen)
	})
	if err != nil {
		return &domain.StoreError{Op: "reset", Err: err}
	}
	slog.Info("index reset", "generation", gen)
	return nil
}

func (s *Store) Insert(ctx context.Context, vec []float64, meta domain.Metadata) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, &domain.StoreError{Op: "insert", Err: err}
	}
	if len(vec) == 0 {
		return domain.Record{}, &domain.StoreError{Op: "insert", Err: fmt.Errorf("%w: empty vector", domain.ErrDimensionMismatch)}
	}
	rec := domain.Record{
		ID:       uuid.NewString(),
		Vector:   append([]float64(nil), vec...),
		Norm:     vector.Norm(vec),
		Metadata: meta,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return domain.Record{}, &domain.StoreError{Op: "insert", Err: err}
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		mb, rb := tx.Bucket(bucketMeta), tx.Bucket(bucketRecords)
		if mb == nil || rb == nil {
			return domain.ErrIndexNotCreated
		}
		switch dim := getUint(mb, keyDimension); {
		case dim == 0:
			if err := putUint(mb, keyDimension, uint64(len(vec))); err != nil {
				return err
			}
		case dim != uint64(len(vec)):
			return fmt.Errorf("%w: index has %d, got %d", domain.ErrDimensionMismatch, dim, len(vec))
		}
		seq, err := rb.NextSequence()
		if err != nil {
			return err
		}
		return rb.Put(itob(seq), data)
	})
	if err != nil {
		return domain.Record{}, &domain.StoreError{Op: "insert", Err: err}
	}
	return rec, nil
}

// ListAll returns every record in insertion order. A record that fails to
// decode fails the whole call.
func (s *Store) ListAll(ctx context.Context) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StoreError{Op: "list", Err: err}
	}
	out := []domain.Record{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		rb := tx.Bucket(bucketRecords)
		if rb == nil {
			return nil
		}
		return rb.ForEach(func(k, v []byte) error {
			var rec domain.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("record %d: %w", btoi(k), err)
			}
			if rec.ID == "" || len(rec.Vector) == 0 {
				return fmt.Errorf("record %d: missing id or vector", btoi(k))
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, &domain.StoreError{Op: "list", Err: err}
	}
	return out, nil
}

func (s *Store) Info(ctx context.Context) (domain.IndexInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.IndexInfo{}, &domain.StoreError{Op: "info", Err: err}
	}
	var info domain.IndexInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		mb, rb := tx.Bucket(bucketMeta), tx.Bucket(bucketRecords)
		if mb == nil || rb == nil {
			return nil
		}
		info.Created = true
		info.SchemaVersion = int(getUint(mb, keySchema))
		info.Generation = getUint(mb, keyGeneration)
		info.Dimension = int(getUint(mb, keyDimension))
		info.Count = rb.Stats().KeyN
		return nil
	})
	if err != nil {
		return domain.IndexInfo{}, &domain.StoreError{Op: "info", Err: err}
	}
	return info, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return &domain.StoreError{Op: "close", Err: err}
	}
	return nil
}

func writeFreshMeta(meta *bbolt.Bucket, generation uint64) error {
	if err := putUint(meta, keySchema, SchemaVersion); err != nil {
		return err
	}
	if err := putUint(meta, keyGeneration, generation); err != nil {
		return err
	}
	if err := putUint(meta, keyDimension, 0); err != nil {
		return err
	}
	return meta.Put(keyCreatedAt, []byte(time.Now().UTC().Format(time.RFC3339)))
}

func getUint(b *bbolt.Bucket, key []byte) uint64 {
	v := b.Get(key)
	if len(v) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(v)
}

func putUint(b *bbolt.Bucket, key []byte, v uint64) error {
	return b.Put(key, itob(v))
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
