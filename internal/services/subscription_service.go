package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/billing"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"
)

// ErrStaleEvent marks a webhook older than the last one applied to the same subscription.
var ErrStaleEvent = errors.New("stale subscription event")

type RoleResolver interface {
	EffectiveRole(ctx context.Context, user *models.User) (models.Role, error)
	Invalidate(ctx context.Context, user *models.User)
}

type SubscriptionConfig struct {
	DefaultPriceID  string
	SuccessURL      string
	CancelURL       string
	PortalReturnURL string
}

type SubscriptionService struct {
	db      *gorm.DB
	billing billing.Provider
	roles   RoleResolver
	cfg     SubscriptionConfig
}

func NewSubscriptionService(db *gorm.DB, provider billing.Provider, roles RoleResolver, cfg SubscriptionConfig) *SubscriptionService {
	return &SubscriptionService{db: db, billing: provider, roles: roles, cfg: cfg}
}

func (s *SubscriptionService) CreateCheckout(ctx context.Context, user *models.User, priceID string) (*dto.CheckoutResponse, error) {
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		priceID = s.cfg.DefaultPriceID
	}
	if priceID == "" {
		return nil, apperr.Validation("priceId", "priceId is required")
	}

	params := billing.CheckoutParams{
		PriceID:           priceID,
		CustomerEmail:     user.Email,
		ClientReferenceID: user.ClerkID,
		SuccessURL:        s.cfg.SuccessURL,
		CancelURL:         s.cfg.CancelURL,
		Metadata: map[string]string{
			"clerkUserId": user.ClerkID,
			"userId":      user.ID.String(),
		},
	}
	if user.StripeCustomerID != nil {
		params.CustomerID = *user.StripeCustomerID
	}

	sess, err := s.billing.CreateCheckout(ctx, params)
	if err != nil {
		return nil, apperr.Upstream("creating checkout session failed", err)
	}
	return &dto.CheckoutResponse{URL: sess.URL, SessionID: sess.ID}, nil
}

func (s *SubscriptionService) CreatePortal(ctx context.Context, user *models.User) (*dto.PortalResponse, error) {
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return nil, apperr.NotFound("billing customer")
	}
	url, err := s.billing.CreatePortal(ctx, *user.StripeCustomerID, s.cfg.PortalReturnURL)
	if err != nil {
		return nil, apperr.Upstream("creating billing portal session failed", err)
	}
	return &dto.PortalResponse{URL: url}, nil
}

func (s *SubscriptionService) Status(ctx context.Context, user *models.User) (*dto.SubscriptionStatusResponse, error) {
	role, err := s.roles.EffectiveRole(ctx, user)
	if err != nil {
		return nil, err
	}
	resp := &dto.SubscriptionStatusResponse{Role: role, IsPro: entitlement.AtLeast(role, models.RolePro)}

	var sub models.Subscription
	err = s.db.WithContext(ctx).
		Where("user_id = ? OR (clerk_user_id = ? AND clerk_user_id <> '')", user.ID, user.ClerkID).
		Order("updated_at DESC").
		First(&sub).Error
	switch {
	case err == nil:
		resp.Subscription = &sub
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.Internal("loading subscription failed", err)
	}
	return resp, nil
}

// HandleStripeEvent applies a verified Stripe event. Unhandled types are ignored.
func (s *SubscriptionService) HandleStripeEvent(ctx context.Context, event stripe.Event) error {
	if event.Data == nil {
		return fmt.Errorf("event %s has no data", event.ID)
	}
	switch event.Type {
	case "checkout.session.completed":
		var sess dto.StripeCheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("decoding checkout session: %w", err)
		}
		return s.linkCustomer(ctx, sess)
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub dto.StripeSubscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decoding subscription: %w", err)
		}
		return s.applySubscription(ctx, sub, string(event.Type) == "customer.subscription.deleted", time.Unix(event.Created, 0))
	default:
		slog.Debug("ignoring stripe event", "type", event.Type, "event_id", event.ID)
		return nil
	}
}

func (s *SubscriptionService) linkCustomer(ctx context.Context, sess dto.StripeCheckoutSession) error {
	clerkID := sess.ClientReferenceID
	if clerkID == "" {
		clerkID = sess.Metadata["clerkUserId"]
	}
	if clerkID == "" || sess.Customer == "" {
		slog.Warn("checkout session without user reference", "session_id", sess.ID)
		return nil
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("clerk_id = ?", clerkID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("checkout session for unknown user", "user_id", clerkID, "session_id", sess.ID)
			return nil
		}
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("stripe_customer_id", sess.Customer).Error; err != nil {
			return err
		}
		if sess.Subscription != "" {
			if err := tx.Model(&models.Subscription{}).
				Where("stripe_subscription_id = ? AND user_id IS NULL", sess.Subscription).
				Updates(map[string]interface{}{"user_id": user.ID, "clerk_user_id": user.ClerkID}).Error; err != nil {
				return err
			}
		}
		s.roles.Invalidate(ctx, &user)
		return nil
	})
}

func (s *SubscriptionService) applySubscription(ctx context.Context, in dto.StripeSubscription, deleted bool, eventAt time.Time) error {
	if in.ID == "" {
		return errors.New("subscription event without id")
	}

	var row models.Subscription
	err := s.db.WithContext(ctx).Where("stripe_subscription_id = ?", in.ID).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.Subscription{StripeSubscriptionID: in.ID}
	case err != nil:
		return err
	case eventAt.Before(row.LastEventAt):
		return ErrStaleEvent
	}

	user := s.resolveUser(ctx, in)

	status := models.SubscriptionStatus(strings.ToUpper(in.Status))
	if deleted || status == "" {
		status = models.SubscriptionCanceled
	}
	periodEnd := in.CurrentPeriodEnd
	if len(in.Items.Data) > 0 {
		if periodEnd == 0 {
			periodEnd = in.Items.Data[0].CurrentPeriodEnd
		}
		row.PriceID = in.Items.Data[0].Price.ID
	}

	row.StripeCustomerID = in.Customer
	row.Status = status
	row.CancelAtPeriodEnd = in.CancelAtPeriodEnd
	row.LastEventAt = eventAt
	if periodEnd > 0 {
		row.CurrentPeriodEnd = time.Unix(periodEnd, 0).UTC()
	}
	if user != nil {
		row.UserID = &user.ID
		row.ClerkUserID = user.ClerkID
	} else if c := in.Metadata["clerkUserId"]; c != "" {
		row.ClerkUserID = c
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		if user == nil {
			return nil
		}
		updates := map[string]interface{}{}
		if user.StripeCustomerID == nil && in.Customer != "" {
			updates["stripe_customer_id"] = in.Customer
		}
		if mirrored := mirrorRole(user.Role, status); mirrored != user.Role {
			updates["role"] = mirrored
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(user).Updates(updates).Error
	})
	if err != nil {
		return fmt.Errorf("saving subscription %s: %w", in.ID, err)
	}
	if user != nil {
		s.roles.Invalidate(ctx, user)
	}
	slog.Info("subscription updated", "subscription_id", in.ID, "status", status, "user_linked", user != nil)
	return nil
}

// resolveUser finds the owner by metadata first, then by customer id.
func (s *SubscriptionService) resolveUser(ctx context.Context, in dto.StripeSubscription) *models.User {
	var user models.User
	db := s.db.WithContext(ctx)
	if id, err := uuid.Parse(in.Metadata["userId"]); err == nil {
		if db.Where("id = ?", id).First(&user).Error == nil {
			return &user
		}
	}
	if c := in.Metadata["clerkUserId"]; c != "" {
		if db.Where("clerk_id = ?", c).First(&user).Error == nil {
			return &user
		}
	}
	if in.Customer != "" {
		if db.Where("stripe_customer_id = ?", in.Customer).First(&user).Error == nil {
			return &user
		}
	}
	return nil
}

// mirrorRole keeps the stored role in step with the subscription for display.
// ADMIN is never demoted.
func mirrorRole(current models.Role, status models.SubscriptionStatus) models.Role {
	if current == models.RoleAdmin {
		return current
	}
	if entitlement.StatusEntitles(status) {
		return models.RolePro
	}
	return models.RoleUser
}
