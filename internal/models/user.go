package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the stored account tier. Effective entitlement is computed by the
// entitlement gate; this column is a mirror kept current by webhooks.
type Role string

const (
	RoleUser  Role = "USER"
	RolePro   Role = "PRO"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClerkID          string    `gorm:"size:255;not null;uniqueIndex" json:"clerkId"`
	Email            string    `gorm:"size:255;index" json:"email"`
	Role             Role      `gorm:"size:20;not null;default:'USER'" json:"role"`
	StripeCustomerID *string   `gorm:"size:255;index" json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}
