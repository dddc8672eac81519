package cli

import (
	"context"
	"fmt"
	"io"

	"dira-go/internal/config"
	"dira-go/internal/repository"
	"dira-go/internal/service"
	"dira-go/pkg/database"
	"dira-go/pkg/embedding"
	"dira-go/pkg/vectorstore"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// app holds the pieces the commands share.
type app struct {
	db         *gorm.DB
	rdb        *redis.Client
	store      vectorstore.Store
	reports    repository.ReportRepository
	duplicates service.DuplicateService
}

// newApp connects to the database, and when withVectors is set, to redis, the embedding provider and the vector store.
func newApp(ctx context.Context, cfg config.Config, withVectors bool) (*app, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, cfg.Vector.Backend == "pgvector"); err != nil {
			return nil, err
		}
	}
	a := &app{db: db, reports: repository.NewReportRepository(db)}
	if !withVectors {
		return a, nil
	}

	if cfg.Database.Redis.Addr != "" {
		if a.rdb, err = database.OpenRedis(ctx, cfg.Database.Redis); err != nil {
			return nil, err
		}
	}
	embeddingClient, err := embedding.NewClient(cfg.Embedding, a.rdb)
	if err != nil {
		return nil, fmt.Errorf("embedding client: %w", err)
	}
	if a.store, err = vectorstore.Open(ctx, cfg, db); err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}
	a.duplicates = service.NewDuplicateService(embeddingClient, a.store, a.reports, cfg.Embedding.Dimensions)
	return a, nil
}

func (a *app) Close() {
	if closer, ok := a.store.(io.Closer); ok {
		_ = closer.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
