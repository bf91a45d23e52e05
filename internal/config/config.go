package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port          string
	CORSOrigins   string
	AppEnv        string
	PublicBaseURL string

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Auth (HS256 secret for dev/test, Clerk JWKS in production)
	JWTSecret    string
	ClerkJWKSURL string
	AdminUserIDs string

	// Vision
	VisionProvider string
	VisionAPIURL   string
	VisionAPIKey   string
	VisionModel    string
	GeminiAPIKey   string
	GeminiModel    string
	VisionTimeout  time.Duration
	VisionRPS      float64

	// Object storage
	StorageDriver   string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3UseSSL        bool
	S3PublicURL     string
	S3PresignExpiry time.Duration
	LocalUploadDir  string

	// Redis (empty means process-local stores)
	RedisURL string

	// Rate limits (requests per window)
	RateLimitDefault        int
	RateLimitUpload         int
	RateLimitAnonymous      int
	RateLimitWindow         time.Duration
	RateLimitIdentityHeader string

	// Billing
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeProPriceID    string
	CheckoutSuccessURL  string
	CheckoutCancelURL   string
	PortalReturnURL     string
	UpgradeURL          string

	// Clerk
	ClerkWebhookSecret string

	// Marketplace
	MarketplaceMode         string
	MarketplaceDefaultPrice float64
	AmazonAffiliateTag      string
	EbayCampaignID          string

	// Entitlement
	EntitlementCacheTTL time.Duration

	SentryDSN string
}

func Load() *Config {
	// .env is optional; real environment always wins.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		Port:          getEnv("PORT", "8080"),
		CORSOrigins:   getEnv("CORS_ORIGINS", "*"),
		AppEnv:        getEnv("APP_ENV", "development"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "repairscan"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "repairscan.db"),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		ClerkJWKSURL: getEnv("CLERK_JWKS_URL", ""),
		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),

		VisionProvider: strings.ToLower(getEnv("VISION_PROVIDER", "openai")),
		VisionAPIURL:   getEnv("VISION_API_URL", "https://api.openai.com/v1/chat/completions"),
		VisionAPIKey:   getEnv("VISION_API_KEY", ""),
		VisionModel:    getEnv("VISION_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		VisionTimeout:  parseDuration(getEnv("VISION_TIMEOUT", "60s"), 60*time.Second),
		VisionRPS:      parseFloat(getEnv("VISION_RPS", "5"), 5),

		StorageDriver:   strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3AccessKey:     getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:     getEnv("S3_SECRET_KEY", ""),
		S3Bucket:        getEnv("S3_BUCKET", "repairscan-photos"),
		S3UseSSL:        parseBool(getEnv("S3_USE_SSL", "true")),
		S3PublicURL:     strings.TrimRight(getEnv("S3_PUBLIC_URL", ""), "/"),
		S3PresignExpiry: parseDuration(getEnv("S3_PRESIGN_EXPIRY", "168h"), 168*time.Hour),
		LocalUploadDir:  getEnv("LOCAL_UPLOAD_DIR", "./uploads"),

		RedisURL: getEnv("REDIS_URL", ""),

		RateLimitDefault:        parseInt(getEnv("RATE_LIMIT_DEFAULT", "100"), 100),
		RateLimitUpload:         parseInt(getEnv("RATE_LIMIT_UPLOAD", "10"), 10),
		RateLimitAnonymous:      parseInt(getEnv("RATE_LIMIT_ANONYMOUS", "10"), 10),
		RateLimitWindow:         parseDuration(getEnv("RATE_LIMIT_WINDOW", "60s"), time.Minute),
		RateLimitIdentityHeader: getEnv("RATE_LIMIT_IDENTITY_HEADER", "X-User-ID"),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeProPriceID:    getEnv("STRIPE_PRO_PRICE_ID", ""),
		CheckoutSuccessURL:  getEnv("CHECKOUT_SUCCESS_URL", "repairscan://subscription/success"),
		CheckoutCancelURL:   getEnv("CHECKOUT_CANCEL_URL", "repairscan://subscription/cancel"),
		PortalReturnURL:     getEnv("PORTAL_RETURN_URL", "repairscan://settings"),
		UpgradeURL:          getEnv("UPGRADE_URL", "/subscription/create-checkout"),

		ClerkWebhookSecret: getEnv("CLERK_WEBHOOK_SECRET", ""),

		MarketplaceMode:         getEnv("MARKETPLACE_MODE", "simulated"),
		MarketplaceDefaultPrice: parseFloat(getEnv("MARKETPLACE_DEFAULT_PRICE", "29.99"), 29.99),
		AmazonAffiliateTag:      getEnv("AMAZON_AFFILIATE_TAG", ""),
		EbayCampaignID:          getEnv("EBAY_CAMPAIGN_ID", ""),

		EntitlementCacheTTL: parseDuration(getEnv("ENTITLEMENT_CACHE_TTL", "30s"), 30*time.Second),

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// AdminIDs returns the configured Clerk user ids that are always ADMIN.
func (c *Config) AdminIDs() []string {
	return ParseCSV(c.AdminUserIDs)
}

func ParseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
