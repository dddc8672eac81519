package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// ReportEmbedding holds one pgvector row per report for the pgvector backend.
// The column is declared without a dimension; the service enforces a fixed length.
type ReportEmbedding struct {
	ReportID  string          `gorm:"type:varchar(36);primaryKey"`
	Report    *Report         `gorm:"constraint:OnDelete:CASCADE"`
	Embedding pgvector.Vector `gorm:"type:vector;not null"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime"`
}

// TableName maps ReportEmbedding to the report_embeddings table.
func (ReportEmbedding) TableName() string {
	return "report_embeddings"
}
