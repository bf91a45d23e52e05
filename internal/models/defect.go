package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Defect is a reported problem with one item. UserID always equals the item's owner.
type Defect struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID      uuid.UUID `gorm:"type:uuid;not null;index" json:"itemId"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"userId"`
	Symptoms    []string  `gorm:"type:jsonb;serializer:json" json:"symptoms"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	PhotoURLs   []string  `gorm:"type:jsonb;serializer:json" json:"photoUrls"`
	Severity    Severity  `gorm:"size:20;not null;default:'MEDIUM'" json:"severity"`
	CreatedAt   time.Time `json:"createdAt"`
	Item        *Item     `gorm:"foreignKey:ItemID" json:"item,omitempty"`
}

func (d *Defect) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
