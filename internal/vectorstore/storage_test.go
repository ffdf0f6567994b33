package vectorstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/config"
	"docrag/internal/domain"
	"docrag/internal/vectorstore/chromem"
	"docrag/internal/vectorstore/memory"
	"docrag/internal/vectorstore/qdrant"
)

func TestNew(t *testing.T) {
	st, err := New(config.VectorStoreConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &memory.Storage{}, st)

	st, err = New(config.VectorStoreConfig{
		Type:    "chromem",
		Chromem: &config.ChromemConfig{Path: filepath.Join(t.TempDir(), "db"), Collection: "chunks"},
	})
	require.NoError(t, err)
	assert.IsType(t, &chromem.Storage{}, st)

	st, err = New(config.VectorStoreConfig{
		Type:   "qdrant",
		Qdrant: &config.QdrantConfig{URL: "http://localhost:6333", Collection: "chunks"},
	})
	require.NoError(t, err)
	assert.IsType(t, &qdrant.Storage{}, st)
}

func TestNew_Errors(t *testing.T) {
	tests := []config.VectorStoreConfig{
		{Type: "qdrant"},
		{Type: "chromem"},
		{Type: "pgvector", Pgvector: &config.PgvectorConfig{DSNEnv: "DOCRAG_TEST_UNSET_DSN", Table: "chunks"}},
		{Type: "faiss"},
	}
	for _, cfg := range tests {
		t.Run(cfg.Type, func(t *testing.T) {
			_, err := New(cfg)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}
