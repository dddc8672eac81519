package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Organisation types used by routing.
const (
	OrgTypeGovernment = "government"
	OrgTypeUtility    = "utility"
)

// Organisation is an agency that receives routed reports.
type Organisation struct {
	ID           string                      `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string                      `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Type         string                      `gorm:"type:varchar(50);not null;index" json:"type"`
	ContactEmail string                      `gorm:"type:varchar(255);not null" json:"contactEmail"`
	ContactAPI   *string                     `gorm:"type:varchar(512)" json:"contactApi"`
	Facilities   datatypes.JSONSlice[string] `json:"facilities"`
	CreatedAt    time.Time                   `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName maps Organisation to the organisations table.
func (Organisation) TableName() string {
	return "organisations"
}

// BeforeCreate assigns the id.
func (o *Organisation) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
