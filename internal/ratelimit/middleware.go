package ratelimit

import (
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	TierDefault   = "default"
	TierUpload    = "upload"
	TierAnonymous = "anonymous"
)

const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

type Config struct {
	Store  QuotaStore
	Limit  int
	Window time.Duration
	Tier   string

	// IdentityHeader is consulted when the request carries no verified token.
	IdentityHeader string

	// KeyFunc overrides caller identification.
	KeyFunc func(c *fiber.Ctx) string

	// Next skips the limiter when it returns true.
	Next func(c *fiber.Ctx) bool
}

// Limiter counts requests per caller in fixed windows.
type Limiter struct {
	cfg   Config
	limit string
}

func NewLimiter(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Tier == "" {
		cfg.Tier = TierDefault
	}
	if cfg.KeyFunc == nil {
		header := cfg.IdentityHeader
		cfg.KeyFunc = func(c *fiber.Ctx) string {
			return CallerKey(c, header)
		}
	}
	return &Limiter{cfg: cfg, limit: strconv.Itoa(cfg.Limit)}
}

// Check records one hit for the caller and sets the X-RateLimit-* headers.
// It returns a RateLimited error once the caller is over quota. A store
// failure counts as allowed.
func (l *Limiter) Check(c *fiber.Ctx) error {
	key := l.cfg.Tier + ":" + l.cfg.KeyFunc(c)
	count, resetIn, err := l.cfg.Store.Hit(c.UserContext(), key, l.cfg.Window)
	if err != nil {
		slog.Warn("rate limit store unavailable, allowing request", "tier", l.cfg.Tier, "error", err)
		return nil
	}

	resetSeconds := int(math.Ceil(resetIn.Seconds()))
	remaining := int64(l.cfg.Limit) - count
	if remaining < 0 {
		remaining = 0
	}
	c.Set(HeaderLimit, l.limit)
	c.Set(HeaderRemaining, strconv.FormatInt(remaining, 10))
	c.Set(HeaderReset, strconv.Itoa(resetSeconds))

	if count > int64(l.cfg.Limit) {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(resetSeconds))
		return apperr.RateLimited(resetSeconds)
	}
	return nil
}

// Handler wraps Check as a fiber middleware.
func (l *Limiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l.cfg.Next != nil && l.cfg.Next(c) {
			return c.Next()
		}
		if err := l.Check(c); err != nil {
			return apperr.Respond(c, err)
		}
		return c.Next()
	}
}

// New returns a fiber middleware enforcing cfg.Limit requests per cfg.Window
// per caller.
func New(cfg Config) fiber.Handler {
	return NewLimiter(cfg).Handler()
}

// CallerKey identifies the caller by verified token subject, then the
// identity header, then source IP.
func CallerKey(c *fiber.Ctx, identityHeader string) string {
	if token, ok := c.Locals("user").(*jwt.Token); ok && token != nil {
		if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
			return "sub:" + sub
		}
	}
	if identityHeader != "" {
		if id := c.Get(identityHeader); id != "" {
			return "id:" + id
		}
	}
	return "ip:" + c.IP()
}
