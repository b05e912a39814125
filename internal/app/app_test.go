package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"tourrag/config"
	"tourrag/internal/adapter/store"
	"tourrag/internal/domain"
)

func TestSourceDirs(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sources.Dirs = []string{"data", "/abs/docs"}

	dirs := SourceDirs(cfg, "/project")
	assert.Equal(t, []string{filepath.Join("/project", "data"), "/abs/docs"}, dirs)
}

func TestNewIndex_LocalOnly(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Index.Disabled = true
	assert.Nil(t, NewIndex(cfg))

	cfg.Index.Disabled = false
	idx := NewIndex(cfg)
	require.NotNil(t, idx)
	assert.Equal(t, "attractions", idx.Name())
}

func TestNewQueryEmbedder_Mock(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimension = 32
	cfg.Embedding.RequestsPerSecond = 100

	emb, err := NewQueryEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 32, emb.Dimension())

	vec, err := emb.Embed(context.Background(), "Black River Gorges")
	require.NoError(t, err)
	assert.Len(t, vec, 32)
}

func TestNewEmbedder_MissingKey(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Embedding.APIKeyEnv = "TOURRAG_TEST_MISSING_KEY"
	t.Setenv("TOURRAG_TEST_MISSING_KEY", "")

	_, err := NewEmbedder(context.Background(), cfg)
	var cfgErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewGenerator_MissingKey(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Generation.APIKeyEnv = "TOURRAG_TEST_MISSING_KEY"
	t.Setenv("TOURRAG_TEST_MISSING_KEY", "")

	_, err := NewGenerator(context.Background(), cfg)
	var cfgErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewLocalStore_PicksByExtension(t *testing.T) {
	cfg := config.DefaultConfig()
	dir := t.TempDir()

	_, isJSON := NewLocalStore(cfg, dir).(*store.JSONStore)
	assert.True(t, isJSON)

	cfg.LocalStore.Path = filepath.Join(".rag", "embeddings.db")
	_, isBolt := NewLocalStore(cfg, dir).(*store.BoltStore)
	assert.True(t, isBolt)
}

func TestNew_LocalOnly(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Embedding.Provider = "mock"
	cfg.Index.Disabled = true

	a, err := New(context.Background(), cfg, t.TempDir(), arbor.NewNoOpLogger())
	require.NoError(t, err)
	assert.Nil(t, a.Index)

	result, err := a.Retrieve.Retrieve(context.Background(), "lagoon snorkelling", 3)
	require.NoError(t, err)
	assert.Equal(t, domain.TierExhausted, result.Tier)
}
