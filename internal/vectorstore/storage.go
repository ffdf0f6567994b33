// Package vectorstore selects a VectorIndex implementation from configuration.
package vectorstore

import (
	"fmt"
	"os"
	"time"

	"docrag/internal/config"
	"docrag/internal/domain"
	"docrag/internal/vectorstore/chromem"
	"docrag/internal/vectorstore/memory"
	"docrag/internal/vectorstore/pgvector"
	"docrag/internal/vectorstore/qdrant"
)

// New opens the store named by cfg.Type. Callers must Init it with the
// embedder's dimension before use.
func New(cfg config.VectorStoreConfig) (domain.VectorIndex, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewStorage(), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("%w: qdrant config missing", domain.ErrInvalidConfig)
		}
		var key string
		if cfg.Qdrant.APIKeyEnv != "" {
			key = os.Getenv(cfg.Qdrant.APIKeyEnv)
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     key,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	case "chromem":
		if cfg.Chromem == nil {
			return nil, fmt.Errorf("%w: chromem config missing", domain.ErrInvalidConfig)
		}
		return chromem.NewStorage(cfg.Chromem.Path, cfg.Chromem.Collection, cfg.Chromem.Compress)
	case "pgvector":
		if cfg.Pgvector == nil {
			return nil, fmt.Errorf("%w: pgvector config missing", domain.ErrInvalidConfig)
		}
		dsn := os.Getenv(cfg.Pgvector.DSNEnv)
		if dsn == "" {
			return nil, fmt.Errorf("%w: missing postgres dsn in env %s", domain.ErrInvalidConfig, cfg.Pgvector.DSNEnv)
		}
		return pgvector.Open(dsn, cfg.Pgvector.Table, cfg.Pgvector.AutoMigrate)
	default:
		return nil, fmt.Errorf("%w: unknown vector store %q", domain.ErrInvalidConfig, cfg.Type)
	}
}
