package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/billing"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/config"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/database"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/logging"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/marketplace"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/ratelimit"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/routes"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/services"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/storage"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/tools"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/vision"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" && cfg.ClerkJWKSURL == "" {
		slog.Error("JWT_SECRET or CLERK_JWKS_URL environment variable is required")
		os.Exit(1)
	}
	if cfg.DBDriver == "postgres" && cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// Database log handler (ERROR+ and audit records, async batch)
	pgLogHandler := logging.NewPGHandler(db)
	slog.SetDefault(slog.New(logging.NewMultiHandler(logging.NewStdoutHandler(), pgLogHandler)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(db, cleanupDone)

	// Redis is optional; without it quotas and entitlement caching are process-local.
	var rdb redis.UniversalClient
	var quota ratelimit.QuotaStore
	var entCache entitlement.Cache
	var memQuota *ratelimit.MemoryStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = client.Ping(ctx).Err()
		cancel()
		if err != nil {
			slog.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		rdb = client
		quota = ratelimit.NewRedisStore(client)
		entCache = entitlement.NewRedisCache(client)
		slog.Info("redis connected")
	} else {
		memQuota = ratelimit.NewMemoryStore(time.Minute)
		quota = memQuota
		entCache = entitlement.NewMemoryCache()
		slog.Warn("REDIS_URL not set, using process-local rate limits")
	}

	// Object storage
	photos, err := newPhotoStore(cfg)
	if err != nil {
		slog.Error("storage setup failed", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}

	// Vision model
	provider, err := newVisionProvider(cfg)
	if err != nil {
		slog.Error("vision provider setup failed", "provider", cfg.VisionProvider, "error", err)
		os.Exit(1)
	}

	toolCatalog, err := tools.LoadCatalog()
	if err != nil {
		slog.Error("tool catalog failed to load", "error", err)
		os.Exit(1)
	}

	if cfg.MarketplaceMode != "simulated" {
		slog.Warn("only simulated marketplace mode is supported", "mode", cfg.MarketplaceMode)
	}

	// Services
	store := catalog.NewStore(db)
	gate := entitlement.NewGate(db, entCache, entitlement.Config{
		AdminIDs:   cfg.AdminIDs(),
		UpgradeURL: cfg.UpgradeURL,
		CacheTTL:   cfg.EntitlementCacheTTL,
	})
	stripeProvider := billing.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	userService := services.NewUserService(db, store, gate)
	identificationService := services.NewIdentificationService(store, photos, provider, cfg.VisionTimeout)
	defectService := services.NewDefectService(store, photos, services.NewContentScreener())
	fixPathService := services.NewFixPathService(store, gate, toolCatalog)
	subscriptionService := services.NewSubscriptionService(db, stripeProvider, gate, services.SubscriptionConfig{
		DefaultPriceID:  cfg.StripeProPriceID,
		SuccessURL:      cfg.CheckoutSuccessURL,
		CancelURL:       cfg.CheckoutCancelURL,
		PortalReturnURL: cfg.PortalReturnURL,
	})
	aggregator := marketplace.NewAggregator(store, marketplace.Config{
		DefaultPrice:       cfg.MarketplaceDefaultPrice,
		AmazonAffiliateTag: cfg.AmazonAffiliateTag,
		EbayCampaignID:     cfg.EbayCampaignID,
	})

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "no-referrer")
		return c.Next()
	})

	if local, ok := photos.(*storage.LocalGateway); ok {
		app.Static("/uploads", local.Root(), fiber.Static{ByteRange: true, MaxAge: 3600})
	}

	routes.Setup(app, cfg, routes.Handlers{
		Health:       handlers.NewHealthHandler(db, rdb),
		Item:         handlers.NewItemHandler(identificationService, store),
		Defect:       handlers.NewDefectHandler(defectService),
		FixPath:      handlers.NewFixPathHandler(fixPathService),
		Parts:        handlers.NewPartsHandler(aggregator),
		Tools:        handlers.NewToolsHandler(tools.NewIndex(db, toolCatalog)),
		Subscription: handlers.NewSubscriptionHandler(subscriptionService),
		Account:      handlers.NewAccountHandler(userService),
		Webhook:      handlers.NewWebhookHandler(subscriptionService, userService, stripeProvider, cfg.ClerkWebhookSecret),
	}, routes.Guards{
		Users: userService,
		Roles: gate,
		Quota: quota,
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	if memQuota != nil {
		memQuota.Stop()
	}
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}
	if err := database.Close(db); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func newPhotoStore(cfg *config.Config) (storage.Gateway, error) {
	switch cfg.StorageDriver {
	case "s3":
		gw, err := storage.NewS3Gateway(storage.S3Config{
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			UseSSL:        cfg.S3UseSSL,
			PublicURL:     cfg.S3PublicURL,
			PresignExpiry: cfg.S3PresignExpiry,
		})
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := gw.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return gw, nil
	default:
		return storage.NewLocalGateway(cfg.LocalUploadDir, cfg.PublicBaseURL)
	}
}

func newVisionProvider(cfg *config.Config) (vision.Provider, error) {
	var p vision.Provider
	switch cfg.VisionProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			slog.Warn("GEMINI_API_KEY not set, device identification disabled")
			return nil, nil
		}
		gp, err := vision.NewGeminiProvider(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		p = gp
	default:
		if cfg.VisionAPIKey == "" {
			slog.Warn("VISION_API_KEY not set, device identification disabled")
			return nil, nil
		}
		p = vision.NewChatProvider(cfg.VisionAPIURL, cfg.VisionAPIKey, cfg.VisionModel, cfg.VisionTimeout)
	}
	return vision.NewThrottled(p, cfg.VisionRPS), nil
}
