package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubscriptionStatus string

const (
	SubscriptionActive            SubscriptionStatus = "ACTIVE"
	SubscriptionTrialing          SubscriptionStatus = "TRIALING"
	SubscriptionPastDue           SubscriptionStatus = "PAST_DUE"
	SubscriptionCanceled          SubscriptionStatus = "CANCELED"
	SubscriptionUnpaid            SubscriptionStatus = "UNPAID"
	SubscriptionIncomplete        SubscriptionStatus = "INCOMPLETE"
	SubscriptionIncompleteExpired SubscriptionStatus = "INCOMPLETE_EXPIRED"
	SubscriptionPaused            SubscriptionStatus = "PAUSED"
)

// Subscription mirrors the payment processor's subscription object. Rows are
// written only by payment webhooks.
type Subscription struct {
	ID                   uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               *uuid.UUID         `gorm:"type:uuid;index" json:"userId,omitempty"`
	ClerkUserID          string             `gorm:"size:255;index" json:"-"`
	StripeCustomerID     string             `gorm:"size:255;index" json:"customerId"`
	StripeSubscriptionID string             `gorm:"size:255;not null;uniqueIndex" json:"subscriptionId"`
	PriceID              string             `gorm:"size:255" json:"priceId"`
	Status               SubscriptionStatus `gorm:"size:30;not null;index" json:"status"`
	CurrentPeriodEnd     time.Time          `json:"currentPeriodEnd"`
	CancelAtPeriodEnd    bool               `gorm:"default:false" json:"cancelAtPeriodEnd"`
	LastEventAt          time.Time          `json:"-"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
