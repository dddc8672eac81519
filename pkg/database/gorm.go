// Package database opens the relational store and the redis client.
package database

import (
	"fmt"

	"dira-go/internal/config"
	"dira-go/pkg/log"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured relational store and sizes its connection pool.
// Acquiring a connection blocks once MaxOpenConns are in use.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log.Infof("[Database] %s connected (max_open=%d, max_idle=%d)", cfg.Driver, cfg.MaxOpenConns, cfg.MaxIdleConns)
	return db, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres":
		return postgres.Open(normalizePostgresDSN(cfg.DSN)), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	case "sqlite":
		// Foreign keys are off by default in SQLite; the DSN should carry _pragma=foreign_keys(1).
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// normalizePostgresDSN rewrites the postgres:// scheme some hosting providers hand out.
func normalizePostgresDSN(dsn string) string {
	const legacy = "postgres://"
	if len(dsn) >= len(legacy) && dsn[:len(legacy)] == legacy {
		return "postgresql://" + dsn[len(legacy):]
	}
	return dsn
}

// EnableVectorExtension creates the pgvector extension when it is missing.
func EnableVectorExtension(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("enable pgvector extension: %w", err)
	}
	return nil
}
