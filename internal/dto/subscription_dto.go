package dto

import "github.com/ahmetcoskunkizilkaya/repairscan/internal/models"

type CheckoutRequest struct {
	PriceID string `json:"priceId,omitempty"`
}

type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

type PortalResponse struct {
	URL string `json:"url"`
}

type SubscriptionStatusResponse struct {
	Role         models.Role          `json:"role"`
	IsPro        bool                 `json:"isPro"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
}
