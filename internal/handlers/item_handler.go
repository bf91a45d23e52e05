package handlers

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ItemHandler struct {
	identification *services.IdentificationService
	store          *catalog.Store
}

func NewItemHandler(identification *services.IdentificationService, store *catalog.Store) *ItemHandler {
	return &ItemHandler{identification: identification, store: store}
}

// IdentifyDevice accepts a multipart "image" file or a JSON body with base64 imageData.
func (h *ItemHandler) IdentifyDevice(c *fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}

	in := services.IdentifyInput{ExtractText: true}
	if isMultipart(c) {
		fh, err := c.FormFile("image")
		if err != nil {
			return apperr.Respond(c, apperr.Validation("image", "image file is required"))
		}
		if in.Image, err = readPart("image", fh); err != nil {
			return apperr.Respond(c, err)
		}
		in.Hints = dto.IdentifyHints{
			Brand:    c.FormValue("brand"),
			Model:    c.FormValue("model"),
			Category: c.FormValue("category"),
		}
		if c.FormValue("extractText") == "false" {
			in.ExtractText = false
		}
	} else {
		var req dto.DeviceIdentifyRequest
		if err := c.BodyParser(&req); err != nil {
			return apperr.Respond(c, apperr.Validation("body", "invalid request body"))
		}
		if in.Image, err = decodeBase64Image(req.ImageData); err != nil {
			return apperr.Respond(c, err)
		}
		in.Hints = req.Hints
		if req.ExtractText != nil {
			in.ExtractText = *req.ExtractText
		}
	}

	res, err := h.identification.IdentifyDevice(c.UserContext(), user, in)
	if err != nil {
		return apperr.Respond(c, err)
	}
	slog.Info("device identified", "user_id", user.ClerkID, "item_id", res.Item.ID, "source", res.Source, "confidence", res.Item.Confidence)
	return c.Status(fiber.StatusCreated).JSON(dto.DeviceIdentifyResponse{Item: *res.Item, Source: res.Source, OCRText: res.OCRText})
}

// BasicIdentify stores 1 to 5 "photos" plus optional descriptive form fields.
func (h *ItemHandler) BasicIdentify(c *fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}
	if !isMultipart(c) {
		return apperr.Respond(c, apperr.Validation("photos", "multipart form with photos is required"))
	}
	photos, err := formPhotos(c, "photos")
	if err != nil {
		return apperr.Respond(c, err)
	}

	res, err := h.identification.BasicIdentify(c.UserContext(), user, photos, services.BasicFields{
		Category:    c.FormValue("category"),
		Brand:       c.FormValue("brand"),
		Model:       c.FormValue("model"),
		ModelNumber: c.FormValue("modelNumber"),
	})
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.DeviceIdentifyResponse{Item: *res.Item, Source: res.Source})
}

func (h *ItemHandler) List(c *fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}
	page, pageSize := catalog.NormalizePage(c.QueryInt("page", 1), c.QueryInt("pageSize", catalog.DefaultPageSize))

	items, total, err := h.store.ListItems(c.UserContext(), user.ID, page, pageSize)
	if err != nil {
		return apperr.Respond(c, apperr.Internal("listing items failed", err))
	}
	return c.JSON(dto.ItemListResponse{Items: items, Total: total, Page: page, PageSize: pageSize})
}

func (h *ItemHandler) Search(c *fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}
	items, err := h.store.SearchItems(c.UserContext(), user.ID, catalog.SearchFilter{
		Query:    c.Query("q"),
		Brand:    c.Query("brand"),
		Category: c.Query("category"),
	})
	if err != nil {
		return apperr.Respond(c, apperr.Internal("searching items failed", err))
	}
	return c.JSON(dto.ItemSearchResponse{Items: items, Count: len(items)})
}
