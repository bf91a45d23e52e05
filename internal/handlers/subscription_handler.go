package handlers

import (
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/services"
	"github.com/gofiber/fiber/v2"
)

type SubscriptionHandler struct {
	subscriptions *services.SubscriptionService
}

func NewSubscriptionHandler(subscriptions *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

func (h *SubscriptionHandler) CreateCheckout(c *fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}
	var req dto.CheckoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperr.Respond(c, apperr.Validation("body", "invalid request body"))
		}
	}
	resp, err := h.subscriptions.CreateCheckout(c.UserContext(), user, req.PriceID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(resp)
}

func (h *SubscriptionHandler) Portal(c *fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}
	resp, err := h.subscriptions.CreatePortal(c.UserContext(), user)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(resp)
}

func (h *SubscriptionHandler) Status(c *fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}
	resp, err := h.subscriptions.Status(c.UserContext(), user)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(resp)
}
