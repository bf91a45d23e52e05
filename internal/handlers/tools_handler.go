package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/tools"
	"github.com/gofiber/fiber/v2"
)

type ToolsHandler struct {
	index *tools.Index
}

func NewToolsHandler(index *tools.Index) *ToolsHandler {
	return &ToolsHandler{index: index}
}

func (h *ToolsHandler) Catalog(c *fiber.Ctx) error {
	q := tools.Query{
		Category:      strings.TrimSpace(c.Query("category")),
		EssentialOnly: c.QueryBool("essential", false),
	}
	var err error
	if q.Lat, err = optionalFloat(c.Query("lat")); err != nil {
		return apperr.Respond(c, apperr.Validation("lat", "lat must be a number"))
	}
	if q.Lng, err = optionalFloat(c.Query("lng")); err != nil {
		return apperr.Respond(c, apperr.Validation("lng", "lng must be a number"))
	}

	res, err := h.index.Search(c.UserContext(), q)
	if fe, ok := fieldError(err); ok {
		return apperr.Respond(c, apperr.Validation(fe.Field, fe.Error()))
	}
	if err != nil {
		return apperr.Respond(c, apperr.Internal("tool search failed", err))
	}
	return c.JSON(res)
}

// CreateLibrary is admin only.
func (h *ToolsHandler) CreateLibrary(c *fiber.Ctx) error {
	var req dto.CreateToolLibraryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Respond(c, apperr.Validation("body", "invalid request body"))
	}
	lib, err := h.index.CreateLibrary(c.UserContext(), req)
	if fe, ok := fieldError(err); ok {
		return apperr.Respond(c, apperr.Validation(fe.Field, fe.Error()))
	}
	if err != nil {
		return apperr.Respond(c, apperr.Internal("saving tool library failed", err))
	}
	return c.Status(fiber.StatusCreated).JSON(lib)
}

func optionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func fieldError(err error) (*tools.FieldError, bool) {
	var fe *tools.FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
