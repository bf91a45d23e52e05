package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogDevice is a curated device record. A match during identification is
// treated as ground truth.
type CatalogDevice struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Brand              string            `gorm:"size:100;not null" json:"brand"`
	Model              string            `gorm:"size:150;not null" json:"model"`
	BrandKey           string            `gorm:"size:100;not null;uniqueIndex:idx_catalog_brand_model,priority:1" json:"-"`
	ModelKey           string            `gorm:"size:150;not null;uniqueIndex:idx_catalog_brand_model,priority:2" json:"-"`
	ModelNumber        string            `gorm:"size:100" json:"modelNumber,omitempty"`
	Category           string            `gorm:"size:100;not null" json:"category"`
	ReleaseYear        int               `json:"releaseYear,omitempty"`
	Specifications     map[string]string `gorm:"type:jsonb;serializer:json" json:"specifications,omitempty"`
	CommonIssues       []string          `gorm:"type:jsonb;serializer:json" json:"commonIssues,omitempty"`
	RepairabilityScore int               `json:"repairabilityScore,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

func (d *CatalogDevice) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// BeforeSave keeps the case-insensitive lookup keys in sync with Brand and Model.
func (d *CatalogDevice) BeforeSave(tx *gorm.DB) error {
	d.BrandKey = DeviceKey(d.Brand)
	d.ModelKey = DeviceKey(d.Model)
	return nil
}

func DeviceKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
