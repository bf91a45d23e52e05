package middleware

import (
	"context"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const currentUserKey = "currentUser"

// UserProvisioner returns the account for an external auth id, creating it
// on first sight.
type UserProvisioner interface {
	EnsureUser(ctx context.Context, clerkID, email string) (*models.User, error)
}

// Identity resolves the verified token subject to a User and stores it for
// handlers. Must run after JWTProtected.
func Identity(users UserProvisioner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok || token == nil {
			return apperr.Respond(c, apperr.Unauthorized("authentication required"))
		}
		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			return apperr.Respond(c, apperr.Unauthorized("token has no subject"))
		}

		var email string
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			email, _ = claims["email"].(string)
		}

		user, err := users.EnsureUser(c.UserContext(), sub, email)
		if err != nil {
			slog.Error("resolving user failed", "user_id", sub, "error", err)
			return apperr.Respond(c, apperr.Internal("resolving user failed", err))
		}
		c.Locals(currentUserKey, user)
		return c.Next()
	}
}

// CurrentUser returns the user stored by Identity, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(currentUserKey).(*models.User)
	return u
}

// SetCurrentUser is used by tests and internal callers that resolve users themselves.
func SetCurrentUser(c *fiber.Ctx, u *models.User) {
	c.Locals(currentUserKey, u)
}
