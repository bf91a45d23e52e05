package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ToolLibrary is a physical tool-lending location.
type ToolLibrary struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string        `gorm:"size:255;not null" json:"name"`
	Address   string        `gorm:"size:500" json:"address"`
	Latitude  float64       `gorm:"not null;index:idx_tool_library_geo,priority:1" json:"latitude"`
	Longitude float64       `gorm:"not null;index:idx_tool_library_geo,priority:2" json:"longitude"`
	Phone     string        `gorm:"size:50" json:"phone,omitempty"`
	Email     string        `gorm:"size:255" json:"email,omitempty"`
	Website   string        `gorm:"size:500" json:"website,omitempty"`
	Hours     string        `gorm:"size:255" json:"hours,omitempty"`
	Inventory []LibraryTool `gorm:"foreignKey:LibraryID;constraint:OnDelete:CASCADE" json:"inventory"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func (l *ToolLibrary) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// LibraryTool is one inventory entry of a tool library. One entry can serve
// several catalog tools; the links are resolved when the library is curated.
type LibraryTool struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	LibraryID uuid.UUID         `gorm:"type:uuid;not null;index" json:"-"`
	Name      string            `gorm:"size:255;not null" json:"name"`
	Available bool              `gorm:"not null" json:"available"`
	Links     []LibraryToolLink `gorm:"foreignKey:LibraryToolID;constraint:OnDelete:CASCADE" json:"tools,omitempty"`
}

func (t *LibraryTool) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ToolIDs lists the catalog tools this entry serves.
func (t LibraryTool) ToolIDs() []string {
	ids := make([]string, 0, len(t.Links))
	for _, l := range t.Links {
		ids = append(ids, l.ToolID)
	}
	return ids
}

// Serves reports whether the entry is linked to the catalog tool id.
func (t LibraryTool) Serves(toolID string) bool {
	for _, l := range t.Links {
		if l.ToolID == toolID {
			return true
		}
	}
	return false
}

// LibraryToolLink joins an inventory entry to a catalog tool id.
type LibraryToolLink struct {
	LibraryToolID uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	ToolID        string    `gorm:"size:100;primaryKey;index" json:"toolId"`
}
