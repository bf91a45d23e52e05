package dto

import "github.com/ahmetcoskunkizilkaya/repairscan/internal/models"

type RecommendFixPathRequest struct {
	DefectID string `json:"defectId"`
}

type RecommendFixPathResponse struct {
	FixPaths  []models.FixPath `json:"fixPaths"`
	Generated bool             `json:"generated"`
}

type PartInput struct {
	PartNumber             string   `json:"partNumber"`
	Name                   string   `json:"name"`
	CompatibleModels       []string `json:"compatibleModels"`
	AlternativePartNumbers []string `json:"alternativePartNumbers"`
	EstimatedCost          float64  `json:"estimatedCost"`
	AffiliateURL           string   `json:"affiliateUrl"`
	Availability           string   `json:"availability"`
}

// CreateFixPathRequest attaches a curated guide to a defect.
type CreateFixPathRequest struct {
	DefectID         string           `json:"defectId"`
	Title            string           `json:"title"`
	Steps            []models.FixStep `json:"steps"`
	Difficulty       string           `json:"difficulty"`
	RiskLevel        string           `json:"riskLevel"`
	WarrantyImpact   string           `json:"warrantyImpact"`
	SafetyWarnings   []string         `json:"safetyWarnings"`
	ProvenanceScore  float64          `json:"provenanceScore"`
	SourceType       string           `json:"sourceType"`
	SourceURL        *string          `json:"sourceUrl,omitempty"`
	EstimatedCost    float64          `json:"estimatedCost"`
	EstimatedMinutes int              `json:"estimatedMinutes"`
	Parts            []PartInput      `json:"parts"`
}

type GuideTool struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Essential   bool   `json:"essential"`
}

type RepairGuideResponse struct {
	FixPath        models.FixPath `json:"fixPath"`
	Defect         models.Defect  `json:"defect"`
	Item           models.Item    `json:"item"`
	Parts          []models.Part  `json:"parts"`
	Tools          []GuideTool    `json:"tools"`
	TotalPartsCost float64        `json:"totalPartsCost"`
	TotalMinutes   int            `json:"totalMinutes"`
}
