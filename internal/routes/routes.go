package routes

import (
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/config"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/ratelimit"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Health       *handlers.HealthHandler
	Item         *handlers.ItemHandler
	Defect       *handlers.DefectHandler
	FixPath      *handlers.FixPathHandler
	Parts        *handlers.PartsHandler
	Tools        *handlers.ToolsHandler
	Subscription *handlers.SubscriptionHandler
	Account      *handlers.AccountHandler
	Webhook      *handlers.WebhookHandler
}

// Guards are the collaborators the auth and quota middleware need.
type Guards struct {
	Users middleware.UserProvisioner
	Roles middleware.RoleChecker
	Quota ratelimit.QuotaStore
}

func Setup(app *fiber.App, cfg *config.Config, h Handlers, g Guards) {
	api := app.Group("/api")

	api.Get("/health", h.Health.Check)

	// Webhooks authenticate by signature, not bearer token.
	api.Post("/webhooks/stripe", h.Webhook.Stripe)
	api.Post("/webhooks/clerk", h.Webhook.Clerk)

	// Anonymous tier: every request reaching a protected route without a
	// verified token, whether the header is missing or garbage.
	anonymous := ratelimit.NewLimiter(ratelimit.Config{
		Store:          g.Quota,
		Limit:          cfg.RateLimitAnonymous,
		Window:         cfg.RateLimitWindow,
		Tier:           ratelimit.TierAnonymous,
		IdentityHeader: cfg.RateLimitIdentityHeader,
	})

	// Protected routes get middleware per route so public routes stay untouched.
	auth := []fiber.Handler{
		middleware.JWTProtected(cfg, anonymous.Check),
		middleware.Identity(g.Users),
		ratelimit.New(ratelimit.Config{
			Store:          g.Quota,
			Limit:          cfg.RateLimitDefault,
			Window:         cfg.RateLimitWindow,
			Tier:           ratelimit.TierDefault,
			IdentityHeader: cfg.RateLimitIdentityHeader,
		}),
	}
	upload := ratelimit.New(ratelimit.Config{
		Store:          g.Quota,
		Limit:          cfg.RateLimitUpload,
		Window:         cfg.RateLimitWindow,
		Tier:           ratelimit.TierUpload,
		IdentityHeader: cfg.RateLimitIdentityHeader,
	})
	admin := middleware.RequireRole(g.Roles, models.RoleAdmin)

	with := func(extra ...fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, auth...), extra...)
	}

	api.Post("/item/identify", with(upload, h.Item.BasicIdentify)...)
	api.Get("/item/identify", with(h.Item.List)...)
	api.Post("/device/identify", with(upload, h.Item.IdentifyDevice)...)
	api.Get("/device/search", with(h.Item.Search)...)

	api.Post("/defect/report", with(upload, h.Defect.Report)...)
	api.Get("/defect/report", with(h.Defect.List)...)

	api.Post("/fixpath/recommend", with(h.FixPath.Recommend)...)
	api.Get("/fixpath/:id", with(h.FixPath.Get)...)
	api.Get("/repair/guide/:id", with(h.FixPath.Guide)...)

	api.Get("/parts/search", with(h.Parts.Search)...)
	api.Get("/tools/catalog", with(h.Tools.Catalog)...)

	api.Post("/subscription/create-checkout", with(h.Subscription.CreateCheckout)...)
	api.Post("/subscription/portal", with(h.Subscription.Portal)...)
	api.Get("/subscription/status", with(h.Subscription.Status)...)

	api.Delete("/account", with(h.Account.Delete)...)

	api.Post("/admin/fixpaths", with(admin, h.FixPath.CreateCurated)...)
	api.Post("/admin/tool-libraries", with(admin, h.Tools.CreateLibrary)...)
}
