package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/billing"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/logging"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/services"
	"github.com/gofiber/fiber/v2"
	svix "github.com/svix/svix-webhooks/go"
)

type WebhookHandler struct {
	subscriptions *services.SubscriptionService
	users         *services.UserService
	billing       billing.Provider
	clerk         *svix.Webhook
}

// NewWebhookHandler takes the Clerk signing secret; an empty or malformed
// secret rejects every Clerk delivery.
func NewWebhookHandler(subscriptions *services.SubscriptionService, users *services.UserService, provider billing.Provider, clerkSecret string) *WebhookHandler {
	h := &WebhookHandler{subscriptions: subscriptions, users: users, billing: provider}
	if clerkSecret != "" {
		wh, err := svix.NewWebhook(clerkSecret)
		if err != nil {
			slog.Error("invalid clerk webhook secret", "error", err)
		} else {
			h.clerk = wh
		}
	}
	return h
}

func (h *WebhookHandler) Stripe(c *fiber.Ctx) error {
	payload := c.Body()
	event, err := h.billing.ParseWebhook(payload, c.Get("Stripe-Signature"))
	if err != nil {
		h.rejectSignature(c, "stripe", err)
		return apperr.Respond(c, apperr.Unauthorized("invalid webhook signature"))
	}

	err = h.subscriptions.HandleStripeEvent(c.UserContext(), event)
	if errors.Is(err, services.ErrStaleEvent) {
		logging.Audit(c.UserContext(), logging.ActionWebhookStaleEvent,
			slog.String("provider", "stripe"),
			slog.String("event_id", event.ID),
			slog.String("event_type", string(event.Type)),
		)
		return c.JSON(fiber.Map{"received": true, "ignored": "stale"})
	}
	if err != nil {
		slog.Error("stripe webhook processing failed", "event_id", event.ID, "event_type", event.Type, "error", err)
		return apperr.Respond(c, apperr.Internal("failed to process webhook event", err))
	}

	slog.Info("stripe webhook processed", "event_id", event.ID, "event_type", event.Type)
	return c.JSON(fiber.Map{"received": true})
}

func (h *WebhookHandler) Clerk(c *fiber.Ctx) error {
	if h.clerk == nil {
		h.rejectSignature(c, "clerk", errors.New("clerk webhook secret not configured"))
		return apperr.Respond(c, apperr.Unauthorized("invalid webhook signature"))
	}

	headers := http.Header{}
	for _, k := range []string{"svix-id", "svix-timestamp", "svix-signature"} {
		headers.Set(k, c.Get(k))
	}
	payload := c.Body()
	if err := h.clerk.Verify(payload, headers); err != nil {
		h.rejectSignature(c, "clerk", err)
		return apperr.Respond(c, apperr.Unauthorized("invalid webhook signature"))
	}

	var event dto.ClerkWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return apperr.Respond(c, apperr.Validation("body", "invalid webhook payload"))
	}

	err := h.users.HandleClerkEvent(c.UserContext(), event)
	if errors.Is(err, services.ErrInvalidClerkData) {
		return apperr.Respond(c, apperr.Validation("data", err.Error()))
	}
	if err != nil {
		slog.Error("clerk webhook processing failed", "event_type", event.Type, "error", err)
		return apperr.Respond(c, apperr.Internal("failed to process webhook event", err))
	}

	slog.Info("clerk webhook processed", "event_type", event.Type)
	return c.JSON(fiber.Map{"received": true})
}

func (h *WebhookHandler) rejectSignature(c *fiber.Ctx, provider string, err error) {
	logging.Audit(c.UserContext(), logging.ActionWebhookSignatureInvalid,
		slog.String("provider", provider),
		slog.String("ip", c.IP()),
		slog.String("error", err.Error()),
	)
}
