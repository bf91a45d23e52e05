package handlers

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/marketplace"
	"github.com/gofiber/fiber/v2"
)

type PartsHandler struct {
	aggregator *marketplace.Aggregator
}

func NewPartsHandler(aggregator *marketplace.Aggregator) *PartsHandler {
	return &PartsHandler{aggregator: aggregator}
}

func (h *PartsHandler) Search(c *fiber.Ctx) error {
	cmp, err := h.aggregator.Compare(c.UserContext(), c.Query("partNumber"), c.Query("model"))
	if errors.Is(err, marketplace.ErrEmptyQuery) {
		return apperr.Respond(c, apperr.Validation("partNumber", err.Error()))
	}
	if err != nil {
		return apperr.Respond(c, apperr.Internal("part search failed", err))
	}
	return c.JSON(cmp)
}
