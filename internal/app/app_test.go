package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragindex/internal/config"
	"ragindex/internal/ranker"
)

func TestBuild_OfflineStackEndToEnd(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	cfg.VectorStore.Path = filepath.Join(t.TempDir(), "index.db")
	cfg.Chat.MaxSentences = 1

	a, err := Build(cfg)
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	n, err := a.Service.Ingest(ctx, "Rockets launch into orbit from the coast.\n\nThe dog is a loyal pet and a good friend.")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	info, err := a.Service.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 256, info.Dimension)

	ans, err := a.Service.Ask(ctx, "which pet is loyal?")
	require.NoError(t, err)
	require.Len(t, ans.Passages, 1)
	assert.Equal(t, []string{"Rockets launch into orbit from the coast.  The dog is a loyal pet and a good friend."}, ranker.Texts(ans.Passages))
	assert.Equal(t, "The dog is a loyal pet and a good friend.", ans.Response)
}

func TestBuild_RejectsUnknownStore(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	cfg.VectorStore.Type = "qdrant"
	_, err = Build(cfg)
	assert.Error(t, err)
}
