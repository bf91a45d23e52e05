package middleware

import (
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/config"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

// JWTProtected verifies bearer session tokens. Clerk tokens are checked
// against the JWKS endpoint when configured; otherwise HS256 with JWT_SECRET.
// A request whose token is missing or fails verification is passed to
// rejected first (nil skips it); a non-nil error from rejected becomes the
// response instead of 401.
func JWTProtected(cfg *config.Config, rejected fiber.Handler) fiber.Handler {
	jc := jwtware.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if rejected != nil {
				if rerr := rejected(c); rerr != nil {
					return apperr.Respond(c, rerr)
				}
			}
			return apperr.Respond(c, apperr.Unauthorized("invalid or expired token"))
		},
	}
	if cfg.ClerkJWKSURL != "" {
		jc.JWKSetURLs = []string{cfg.ClerkJWKSURL}
	} else {
		jc.SigningKey = jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.JWTSecret)}
	}
	return jwtware.New(jc)
}
