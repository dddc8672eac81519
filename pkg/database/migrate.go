package database

import (
	"fmt"

	"dira-go/internal/model"
	"dira-go/pkg/log"

	"gorm.io/gorm"
)

// Migrate creates or updates the tables. The report_embeddings table is only created for the pgvector backend.
func Migrate(db *gorm.DB, withVectors bool) error {
	models := []interface{}{
		&model.Reporter{},
		&model.Organisation{},
		&model.Report{},
		&model.ReportRoute{},
		&model.RelatedReport{},
	}
	if withVectors {
		if err := EnableVectorExtension(db); err != nil {
			return err
		}
		models = append(models, &model.ReportEmbedding{})
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Infof("[Database] schema migrated (%d tables)", len(models))
	return nil
}
