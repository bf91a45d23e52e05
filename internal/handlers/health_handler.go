package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/database"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db    *gorm.DB
	redis redis.UniversalClient
}

// NewHealthHandler takes an optional redis client; nil reports "disabled".
func NewHealthHandler(db *gorm.DB, rdb redis.UniversalClient) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	resp := dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        "ok",
		Redis:     "disabled",
	}
	if err := database.Ping(h.db); err != nil {
		resp.Status = "degraded"
		resp.DB = "unhealthy"
	}
	if h.redis != nil {
		resp.Redis = "ok"
		if err := h.redis.Ping(c.UserContext()).Err(); err != nil {
			resp.Status = "degraded"
			resp.Redis = "unhealthy"
		}
	}

	status := fiber.StatusOK
	if resp.Status != "ok" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(resp)
}
