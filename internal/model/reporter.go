package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reporter is the citizen behind a report. Anonymous reporters still carry an email for follow-up.
type Reporter struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        *string   `gorm:"type:varchar(255)" json:"name"`
	Email       string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	IsAnonymous bool      `gorm:"not null;default:false" json:"isAnonymous"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName maps Reporter to the reporters table.
func (Reporter) TableName() string {
	return "reporters"
}

// BeforeCreate assigns the id.
func (r *Reporter) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
