package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Relationship kinds for RelatedReport.
const (
	RelationshipDuplicate = "duplicate"
	RelationshipSimilar   = "similar"
)

// ValidRelationship reports whether t is a known relationship kind.
func ValidRelationship(t string) bool {
	return t == RelationshipDuplicate || t == RelationshipSimilar
}

// RelatedReport is a directed edge between two reports.
// (report_id, related_report_id) is unique; deleting either report removes the edge.
type RelatedReport struct {
	ID               string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ReportID         string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_related_reports_pair,priority:1" json:"reportId"`
	Report           *Report   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	RelatedReportID  string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_related_reports_pair,priority:2;index" json:"relatedReportId"`
	RelatedReport    *Report   `gorm:"foreignKey:RelatedReportID;constraint:OnDelete:CASCADE" json:"-"`
	SimilarityScore  float64   `gorm:"not null" json:"similarityScore"`
	RelationshipType string    `gorm:"type:varchar(20);not null;default:duplicate" json:"relationshipType"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName maps RelatedReport to the related_reports table.
func (RelatedReport) TableName() string {
	return "related_reports"
}

// BeforeCreate assigns the id.
func (r *RelatedReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
