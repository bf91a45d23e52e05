package handlers

import (
	"encoding/base64"
	"io"
	"mime/multipart"
	"strings"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/storage"
	"github.com/gofiber/fiber/v2"
)

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm)
}

// requireUser returns the resolved caller or writes a 401.
func requireUser(c *fiber.Ctx) (*models.User, error) {
	user := middleware.CurrentUser(c)
	if user == nil {
		return nil, apperr.Respond(c, apperr.Unauthorized("authentication required"))
	}
	return user, nil
}

func readPart(field string, fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > storage.MaxPhotoBytes {
		return nil, apperr.Validation(field, "photo exceeds 8 MB")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperr.Validation(field, "photo could not be read")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, storage.MaxPhotoBytes+1))
	if err != nil {
		return nil, apperr.Validation(field, "photo could not be read")
	}
	if len(data) > storage.MaxPhotoBytes {
		return nil, apperr.Validation(field, "photo exceeds 8 MB")
	}
	return data, nil
}

// formPhotos reads every file sent under field.
func formPhotos(c *fiber.Ctx, field string) ([][]byte, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperr.Validation(field, "invalid multipart form")
	}
	files := form.File[field]
	out := make([][]byte, 0, len(files))
	for _, fh := range files {
		data, err := readPart(field, fh)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// decodeBase64Image accepts raw base64 or a data URI.
func decodeBase64Image(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ","); strings.HasPrefix(s, "data:") && i > 0 {
		s = s[i+1:]
	}
	if s == "" {
		return nil, apperr.Validation("imageData", "imageData is required")
	}
	if base64.StdEncoding.DecodedLen(len(s)) > storage.MaxPhotoBytes+3 {
		return nil, apperr.Validation("imageData", "photo exceeds 8 MB")
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, apperr.Validation("imageData", "imageData must be base64")
	}
	return data, nil
}
