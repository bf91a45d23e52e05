package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Difficulty string

const (
	DifficultyEasy     Difficulty = "EASY"
	DifficultyModerate Difficulty = "MODERATE"
	DifficultyHard     Difficulty = "HARD"
	DifficultyExpert   Difficulty = "EXPERT"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyModerate, DifficultyHard, DifficultyExpert:
		return true
	}
	return false
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

type SourceType string

const (
	SourceOfficial    SourceType = "OFFICIAL"
	SourceIFixit      SourceType = "IFIXIT"
	SourceCommunity   SourceType = "COMMUNITY"
	SourceAIGenerated SourceType = "AI_GENERATED"
)

func (s SourceType) Valid() bool {
	switch s {
	case SourceOfficial, SourceIFixit, SourceCommunity, SourceAIGenerated:
		return true
	}
	return false
}

// FixStep is one ordered step of a repair guide.
type FixStep struct {
	Order            int      `json:"order"`
	Title            string   `json:"title"`
	Instructions     []string `json:"instructions"`
	Tools            []string `json:"tools"`
	EstimatedMinutes int      `json:"estimatedMinutes"`
	Warnings         []string `json:"warnings,omitempty"`
}

// FixPath is a repair guide for one defect.
type FixPath struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	DefectID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"defectId"`
	Title            string     `gorm:"size:255;not null" json:"title"`
	Steps            []FixStep  `gorm:"type:jsonb;serializer:json" json:"steps"`
	Difficulty       Difficulty `gorm:"size:20;not null" json:"difficulty"`
	RiskLevel        RiskLevel  `gorm:"size:20;not null" json:"riskLevel"`
	WarrantyImpact   string     `gorm:"type:text" json:"warrantyImpact"`
	SafetyWarnings   []string   `gorm:"type:jsonb;serializer:json" json:"safetyWarnings"`
	ProvenanceScore  float64    `gorm:"not null;index" json:"provenanceScore"`
	SourceType       SourceType `gorm:"size:20;not null" json:"sourceType"`
	SourceURL        *string    `gorm:"type:text" json:"sourceUrl,omitempty"`
	EstimatedCost    float64    `json:"estimatedCost"`
	EstimatedMinutes int        `json:"estimatedMinutes"`
	Parts            []Part     `gorm:"many2many:fix_path_parts;" json:"parts"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func (f *FixPath) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
