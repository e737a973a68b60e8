// Package storetest holds the behaviour every domain.VectorStore must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragindex/internal/domain"
)

// Run exercises a fresh store returned by open. open must register its own
// cleanup.
func Run(t *testing.T, open func(t *testing.T) domain.VectorStore) {
	t.Run("NeverCreatedListsEmpty", func(t *testing.T) {
		s := open(t)
		recs, err := s.ListAll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, recs)

		info, err := s.Info(context.Background())
		require.NoError(t, err)
		assert.False(t, info.Created)
	})

	t.Run("InsertWithoutIndexFails", func(t *testing.T) {
		s := open(t)
		_, err := s.Insert(context.Background(), []float64{1, 0}, domain.Metadata{Text: "x"})
		var serr *domain.StoreError
		require.True(t, errors.As(err, &serr))
		assert.ErrorIs(t, err, domain.ErrIndexNotCreated)
	})

	t.Run("CreateIsIdempotent", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, s.CreateIndexIfAbsent(ctx))
		_, err := s.Insert(ctx, []float64{3, 4}, domain.Metadata{Text: "kept"})
		require.NoError(t, err)
		before, err := s.Info(ctx)
		require.NoError(t, err)

		require.NoError(t, s.CreateIndexIfAbsent(ctx))
		after, err := s.Info(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
		assert.Equal(t, 1, after.Count)
		assert.Equal(t, 1, after.SchemaVersion)
	})

	t.Run("InsertComputesNormAndID", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, s.CreateIndexIfAbsent(ctx))
		in := []float64{3, 4}
		rec, err := s.Insert(ctx, in, domain.Metadata{Text: "three four"})
		require.NoError(t, err)
		assert.NotEmpty(t, rec.ID)
		assert.InDelta(t, 5.0, rec.Norm, 1e-12)

		in[0] = 99
		recs, err := s.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, rec.ID, recs[0].ID)
		assert.Equal(t, []float64{3, 4}, recs[0].Vector)
		assert.Equal(t, "three four", recs[0].Metadata.Text)
	})

	t.Run("ListAllKeepsInsertionOrder", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, s.CreateIndexIfAbsent(ctx))
		for i := 0; i < 20; i++ {
			_, err := s.Insert(ctx, []float64{float64(i), 1}, domain.Metadata{Text: fmt.Sprintf("t%02d", i)})
			require.NoError(t, err)
		}
		recs, err := s.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, recs, 20)
		for i, r := range recs {
			assert.Equal(t, fmt.Sprintf("t%02d", i), r.Metadata.Text)
		}
	})

	t.Run("DimensionFixedByFirstInsert", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, s.CreateIndexIfAbsent(ctx))
		_, err := s.Insert(ctx, []float64{1, 2, 3}, domain.Metadata{Text: "a"})
		require.NoError(t, err)
		_, err = s.Insert(ctx, []float64{1, 2}, domain.Metadata{Text: "b"})
		var serr *domain.StoreError
		require.True(t, errors.As(err, &serr))
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

		_, err = s.Insert(ctx, nil, domain.Metadata{Text: "c"})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

		info, err := s.Info(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, info.Dimension)
		assert.Equal(t, 1, info.Count)
	})

	t.Run("ResetEmptiesAndBumpsGeneration", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, s.CreateIndexIfAbsent(ctx))
		_, err := s.Insert(ctx, []float64{1, 2, 3}, domain.Metadata{Text: "a"})
		require.NoError(t, err)
		before, err := s.Info(ctx)
		require.NoError(t, err)

		require.NoError(t, s.Reset(ctx))
		recs, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, recs)

		after, err := s.Info(ctx)
		require.NoError(t, err)
		assert.True(t, after.Created)
		assert.Equal(t, before.Generation+1, after.Generation)
		assert.Zero(t, after.Dimension)

		// a new generation accepts a new dimension
		_, err = s.Insert(ctx, []float64{1, 2}, domain.Metadata{Text: "b"})
		require.NoError(t, err)
	})

	t.Run("ResetCreatesMissingIndex", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, s.Reset(ctx))
		_, err := s.Insert(ctx, []float64{1}, domain.Metadata{Text: "a"})
		require.NoError(t, err)
	})

	t.Run("ConcurrentInsertsGetDistinctIDs", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, s.CreateIndexIfAbsent(ctx))
		const n = 64
		var wg sync.WaitGroup
		ids := make([]string, n)
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rec, err := s.Insert(ctx, []float64{float64(i), 1}, domain.Metadata{Text: fmt.Sprint(i)})
				ids[i], errs[i] = rec.ID, err
			}(i)
		}
		wg.Wait()
		seen := map[string]bool{}
		for i := range ids {
			require.NoError(t, errs[i])
			seen[ids[i]] = true
		}
		assert.Len(t, seen, n)

		recs, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, recs, n)
	})

	t.Run("ConcurrentResetNeverExposesPartialState", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, s.CreateIndexIfAbsent(ctx))
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					_, err := s.Insert(ctx, []float64{1, 2}, domain.Metadata{Text: "x"})
					assert.NoError(t, err)
				}
			}()
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Reset(ctx))
				_, err := s.ListAll(ctx)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
	})

	t.Run("CancelledContext", func(t *testing.T) {
		s := open(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.ListAll(ctx)
		var serr *domain.StoreError
		require.True(t, errors.As(err, &serr))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
