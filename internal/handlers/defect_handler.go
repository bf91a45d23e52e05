package handlers

import (
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/services"
	"github.com/gofiber/fiber/v2"
)

type DefectHandler struct {
	defects *services.DefectService
}

func NewDefectHandler(defects *services.DefectService) *DefectHandler {
	return &DefectHandler{defects: defects}
}

// Report accepts JSON, or a multipart form with repeated "symptoms" values and "photos" files.
func (h *DefectHandler) Report(c *fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}

	var req dto.ReportDefectRequest
	var photos [][]byte
	if isMultipart(c) {
		form, ferr := c.MultipartForm()
		if ferr != nil {
			return apperr.Respond(c, apperr.Validation("photos", "invalid multipart form"))
		}
		req.ItemID = c.FormValue("itemId")
		req.Symptoms = form.Value["symptoms"]
		req.Severity = c.FormValue("severity")
		if d := c.FormValue("description"); d != "" {
			req.Description = &d
		}
		if photos, err = formPhotos(c, "photos"); err != nil {
			return apperr.Respond(c, err)
		}
	} else if err := c.BodyParser(&req); err != nil {
		return apperr.Respond(c, apperr.Validation("body", "invalid request body"))
	}

	defect, err := h.defects.Report(c.UserContext(), user, req, photos)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(defect)
}

func (h *DefectHandler) List(c *fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}
	defects, err := h.defects.List(c.UserContext(), user, c.Query("itemId"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(dto.DefectListResponse{Defects: defects, Count: len(defects)})
}
