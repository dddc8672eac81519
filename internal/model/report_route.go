package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportRoute records that a report was sent to an organisation.
type ReportRoute struct {
	ID             string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	ReportID       string        `gorm:"type:varchar(36);not null;index" json:"reportId"`
	Report         *Report       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	OrganisationID string        `gorm:"type:varchar(36);not null;index" json:"organisationId"`
	Organisation   *Organisation `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Message        *string       `gorm:"type:text" json:"message"`
	Status         string        `gorm:"type:varchar(20);not null;default:sent" json:"status"`
	SentAt         time.Time     `gorm:"autoCreateTime" json:"sentAt"`
}

// TableName maps ReportRoute to the report_routes table.
func (ReportRoute) TableName() string {
	return "report_routes"
}

// BeforeCreate assigns the id.
func (r *ReportRoute) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
