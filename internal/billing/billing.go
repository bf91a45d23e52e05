// Package billing wraps the payment processor used for PRO subscriptions.
package billing

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v76"
)

var (
	ErrNotConfigured    = errors.New("billing is not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

type CheckoutParams struct {
	PriceID           string
	CustomerID        string
	CustomerEmail     string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	Metadata          map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

type Provider interface {
	CreateCheckout(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
	CreatePortal(ctx context.Context, customerID, returnURL string) (string, error)
	// ParseWebhook verifies the signature header and decodes the event.
	ParseWebhook(payload []byte, signature string) (stripe.Event, error)
}
