// Package model defines the gorm models and the DTOs returned by the API.
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Report statuses. Transitions are not enforced; any status may overwrite any other.
const (
	StatusSubmitted = "submitted"
	StatusRouted    = "routed"
	StatusResolved  = "resolved"
	StatusDuplicate = "duplicate"
)

// ValidStatus reports whether s is a known report status.
func ValidStatus(s string) bool {
	switch s {
	case StatusSubmitted, StatusRouted, StatusResolved, StatusDuplicate:
		return true
	}
	return false
}

// Report is a citizen-submitted issue.
// The embedding itself is held by the vector store; EmbeddedAt is set once a vector has been stored.
type Report struct {
	ID             string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title          string         `gorm:"type:varchar(255);not null" json:"title"`
	Description    string         `gorm:"type:text;not null" json:"description"`
	Category       *string        `gorm:"type:varchar(50);index" json:"category"`
	Urgency        *string        `gorm:"type:varchar(20)" json:"urgency"`
	Entities       datatypes.JSON `json:"entities,omitempty"`
	Confidence     *float64       `json:"confidence"`
	Status         string         `gorm:"type:varchar(20);not null;default:submitted;index" json:"status"`
	ReporterID     *string        `gorm:"type:varchar(36);index" json:"reporterId"`
	Reporter       *Reporter      `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	ImageObject    *string        `gorm:"type:varchar(255)" json:"imageObject"`
	AnalysisResult *string        `gorm:"type:text" json:"analysisResult"`
	EmbeddingModel *string        `gorm:"type:varchar(100)" json:"embeddingModel"`
	EmbeddedAt     *time.Time     `json:"embeddedAt"`
	SubmittedAt    time.Time      `gorm:"not null;index" json:"submittedAt"`
	// ResolvedAt is set when the status becomes resolved and cleared when it leaves resolved.
	ResolvedAt *time.Time `json:"resolvedAt"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName maps Report to the reports table.
func (Report) TableName() string {
	return "reports"
}

// BeforeCreate assigns the id and submission time when the caller has not.
func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = StatusSubmitted
	}
	return nil
}

// CanonicalText is the single input used for embedding a report.
func CanonicalText(title, description string) string {
	return title + " " + description
}

// ReportCandidate is a report ranked by similarity to a query embedding.
type ReportCandidate struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Category        *string   `json:"category"`
	Status          string    `json:"status"`
	SubmittedAt     time.Time `json:"submittedAt"`
	SimilarityScore float64   `json:"similarityScore"`
}
