package dto

import "github.com/ahmetcoskunkizilkaya/repairscan/internal/models"

type ReportDefectRequest struct {
	ItemID      string   `json:"itemId"`
	Symptoms    []string `json:"symptoms"`
	Description *string  `json:"description,omitempty"`
	Severity    string   `json:"severity,omitempty"`
}

type DefectListResponse struct {
	Defects []models.Defect `json:"defects"`
	Count   int             `json:"count"`
}
