package dto

type LibraryToolInput struct {
	Name      string  `json:"name"`
	ToolID    *string `json:"toolId,omitempty"`
	Available *bool   `json:"available,omitempty"`
}

type CreateToolLibraryRequest struct {
	Name      string             `json:"name"`
	Address   string             `json:"address"`
	Latitude  *float64           `json:"latitude"`
	Longitude *float64           `json:"longitude"`
	Phone     string             `json:"phone"`
	Email     string             `json:"email"`
	Website   string             `json:"website"`
	Hours     string             `json:"hours"`
	Inventory []LibraryToolInput `json:"inventory"`
}
