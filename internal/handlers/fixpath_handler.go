package handlers

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/services"
	"github.com/gofiber/fiber/v2"
)

type FixPathHandler struct {
	fixPaths *services.FixPathService
}

func NewFixPathHandler(fixPaths *services.FixPathService) *FixPathHandler {
	return &FixPathHandler{fixPaths: fixPaths}
}

func (h *FixPathHandler) Recommend(c *fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}
	var req dto.RecommendFixPathRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Respond(c, apperr.Validation("body", "invalid request body"))
	}

	resp, err := h.fixPaths.Recommend(c.UserContext(), user, req.DefectID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if resp.Generated {
		slog.Info("fix path generated", "user_id", user.ClerkID, "defect_id", req.DefectID)
	}
	return c.JSON(resp)
}

func (h *FixPathHandler) Get(c *fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}
	fp, err := h.fixPaths.Get(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fp)
}

func (h *FixPathHandler) Guide(c *fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}
	guide, err := h.fixPaths.Guide(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(guide)
}

// CreateCurated is admin only.
func (h *FixPathHandler) CreateCurated(c *fiber.Ctx) error {
	var req dto.CreateFixPathRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Respond(c, apperr.Validation("body", "invalid request body"))
	}
	fp, err := h.fixPaths.CreateCurated(c.UserContext(), req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fp)
}
