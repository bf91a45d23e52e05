package middleware

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
	"github.com/gofiber/fiber/v2"
)

type RoleChecker interface {
	Require(ctx context.Context, user *models.User, min models.Role) error
}

// RequireRole rejects callers whose effective role is below min.
func RequireRole(checker RoleChecker, min models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return apperr.Respond(c, apperr.Unauthorized("authentication required"))
		}
		if err := checker.Require(c.UserContext(), user, min); err != nil {
			return apperr.Respond(c, err)
		}
		return c.Next()
	}
}
