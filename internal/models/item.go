package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Item is one identified physical object owned by exactly one user.
type Item struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"userId"`
	Category    string            `gorm:"size:100;not null;index" json:"category"`
	Brand       *string           `gorm:"size:100;index" json:"brand,omitempty"`
	Model       *string           `gorm:"size:150" json:"model,omitempty"`
	ModelNumber *string           `gorm:"size:100" json:"modelNumber,omitempty"`
	Confidence  float64           `gorm:"not null;default:0" json:"confidence"`
	PhotoURLs   []string          `gorm:"type:jsonb;serializer:json" json:"photoUrls"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
