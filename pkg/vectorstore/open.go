package vectorstore

import (
	"context"
	"fmt"

	"dira-go/internal/config"

	"gorm.io/gorm"
)

// Open builds the Store selected by vector.backend. db is only used by the pgvector backend.
func Open(ctx context.Context, cfg config.Config, db *gorm.DB) (Store, error) {
	switch cfg.Vector.Backend {
	case "pgvector":
		return NewPGVectorStore(db), nil
	case "elasticsearch":
		return NewElasticsearchStore(ctx, cfg.Elasticsearch, cfg.Embedding.Dimensions)
	case "qdrant":
		return NewQdrantStore(ctx, cfg.Qdrant, cfg.Embedding.Dimensions)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Vector.Backend)
	}
}
