package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Availability string

const (
	AvailabilityInStock      Availability = "IN_STOCK"
	AvailabilityLimited      Availability = "LIMITED"
	AvailabilityOutOfStock   Availability = "OUT_OF_STOCK"
	AvailabilityDiscontinued Availability = "DISCONTINUED"
)

type Part struct {
	ID                     uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	PartNumber             string       `gorm:"size:100;not null;uniqueIndex" json:"partNumber"`
	Name                   string       `gorm:"size:255;not null" json:"name"`
	CompatibleModels       []string     `gorm:"type:text;serializer:json" json:"compatibleModels"`
	AlternativePartNumbers []string     `gorm:"type:text;serializer:json" json:"alternativePartNumbers"`
	EstimatedCost          float64      `json:"estimatedCost"`
	AffiliateURL           string       `gorm:"type:text" json:"affiliateUrl,omitempty"`
	Availability           Availability `gorm:"size:20;not null;default:'IN_STOCK'" json:"availability"`
	CreatedAt              time.Time    `json:"createdAt"`
	UpdatedAt              time.Time    `json:"updatedAt"`
}

func (p *Part) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Availability == "" {
		p.Availability = AvailabilityInStock
	}
	return nil
}
