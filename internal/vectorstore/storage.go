// Package vectorstore opens the index backend named in the config.
package vectorstore

import (
	"fmt"
	"os"
	"path/filepath"

	"ragindex/internal/config"
	"ragindex/internal/domain"
	"ragindex/internal/vectorstore/bolt"
	"ragindex/internal/vectorstore/memory"
)

// Open returns the configured store. The caller owns it and must Close it.
func Open(cfg config.VectorStoreConfig) (domain.VectorStore, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewStorage(), nil
	case "bolt", "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("bolt store: path is required")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("bolt store: %w", err)
		}
		return bolt.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}
