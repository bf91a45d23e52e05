package handlers

import (
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AccountHandler struct {
	users *services.UserService
}

func NewAccountHandler(users *services.UserService) *AccountHandler {
	return &AccountHandler{users: users}
}

// Delete removes the caller's account and all data they own.
func (h *AccountHandler) Delete(c *fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}
	if err := h.users.DeleteAccount(c.UserContext(), user); err != nil {
		return apperr.Respond(c, apperr.Internal("deleting account failed", err))
	}
	return c.SendStatus(fiber.StatusNoContent)
}
