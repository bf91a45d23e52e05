package dto

import "github.com/ahmetcoskunkizilkaya/repairscan/internal/models"

// IdentifyHints are caller corrections applied when the vision result is low confidence.
type IdentifyHints struct {
	Brand    string `json:"brand,omitempty"`
	Model    string `json:"model,omitempty"`
	Category string `json:"category,omitempty"`
}

// DeviceIdentifyRequest is the JSON form of POST /device/identify.
type DeviceIdentifyRequest struct {
	ImageData   string        `json:"imageData"`
	ContentType string        `json:"contentType"`
	Hints       IdentifyHints `json:"hints"`
	ExtractText *bool         `json:"extractText,omitempty"`
}

type DeviceIdentifyResponse struct {
	Item    models.Item `json:"item"`
	Source  string      `json:"source"`
	OCRText string      `json:"ocrText,omitempty"`
}

type ItemListResponse struct {
	Items    []models.Item `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

type ItemSearchResponse struct {
	Items []models.Item `json:"items"`
	Count int           `json:"count"`
}
