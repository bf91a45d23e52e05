package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("RATE_LIMIT_UPLOAD", "")
	t.Setenv("VISION_TIMEOUT", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10, cfg.RateLimitUpload)
	assert.Equal(t, 60*time.Second, cfg.VisionTimeout)
	assert.Equal(t, "simulated", cfg.MarketplaceMode)
	assert.InDelta(t, 29.99, cfg.MarketplaceDefaultPrice, 0.0001)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RATE_LIMIT_WINDOW", "2m")
	t.Setenv("RATE_LIMIT_DEFAULT", "not-a-number")
	t.Setenv("S3_USE_SSL", "false")
	t.Setenv("PUBLIC_BASE_URL", "https://api.example.com/")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 100, cfg.RateLimitDefault, "invalid numbers fall back to the default")
	assert.False(t, cfg.S3UseSSL)
	assert.Equal(t, "https://api.example.com", cfg.PublicBaseURL)
}

func TestParseCSV(t *testing.T) {
	assert.Nil(t, ParseCSV(""))
	assert.Equal(t, []string{"a", "b"}, ParseCSV(" a, ,b ,"))
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "n", DBPort: "5432", DBSSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())
}
