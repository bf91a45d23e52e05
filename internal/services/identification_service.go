package services

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/imaging"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/storage"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/vision"
	"gorm.io/datatypes"
)

const (
	SourceAI          = "ai"
	SourcePlaceholder = "placeholder"
	SourceCatalog     = "catalog"
	SourceBasic       = "basic"

	// HintThreshold is the confidence at or above which caller hints are ignored.
	HintThreshold = 0.9
	// CatalogConfidence is the floor applied when a curated device matches.
	CatalogConfidence = 0.9

	MaxBasicPhotos = 5
)

type IdentifyInput struct {
	Image       []byte
	Hints       dto.IdentifyHints
	ExtractText bool
}

// BasicFields are the optional form fields of a basic identification.
type BasicFields struct {
	Category    string
	Brand       string
	Model       string
	ModelNumber string
}

type IdentifyResult struct {
	Item    *models.Item
	Source  string
	OCRText string
}

type IdentificationService struct {
	store   *catalog.Store
	photos  storage.Gateway
	vision  vision.Provider
	timeout time.Duration
}

func NewIdentificationService(store *catalog.Store, photos storage.Gateway, provider vision.Provider, timeout time.Duration) *IdentificationService {
	return &IdentificationService{store: store, photos: photos, vision: provider, timeout: timeout}
}

// IdentifyDevice stores the photo, asks the vision model what it shows and
// persists the result as a new item owned by user.
func (s *IdentificationService) IdentifyDevice(ctx context.Context, user *models.User, in IdentifyInput) (*IdentifyResult, error) {
	if s.vision == nil {
		return nil, apperr.Upstream("vision model is not configured", vision.ErrNoProvider)
	}

	if _, err := storage.DetectPhotoType(in.Image); err != nil {
		return nil, photoError("image", err)
	}
	img, err := imaging.Process(in.Image)
	if err != nil {
		return nil, apperr.Validation("image", "image could not be decoded")
	}

	url, err := storage.PutPhoto(ctx, s.photos, "items", user.ID, in.Image)
	if err != nil {
		return nil, photoError("image", err)
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	reply, err := s.vision.Complete(callCtx, vision.Request{Prompt: vision.IdentifyPrompt, Image: img.Data, MIME: img.MIME})
	if err != nil {
		slog.Error("vision identify failed", "provider", s.vision.Name(), "user_id", user.ClerkID, "error", err)
		return nil, apperr.Upstream("device identification failed", err)
	}

	id, ok := vision.ParseIdentity(reply)
	source := SourceAI
	if !ok {
		slog.Warn("vision reply not parseable, using placeholder", "provider", s.vision.Name(), "reply_len", len(reply))
		source = SourcePlaceholder
	}

	var ocrText string
	if in.ExtractText {
		text, err := s.vision.Complete(callCtx, vision.Request{Prompt: vision.OCRPrompt, Image: img.Data, MIME: img.MIME})
		if err != nil {
			slog.Warn("ocr pass failed", "provider", s.vision.Name(), "error", err)
		} else {
			ocrText = strings.TrimSpace(text)
			if id.ModelNumber == "" {
				id.ModelNumber = vision.ExtractModelNumber(ocrText)
			}
		}
	}

	if id.Confidence < HintThreshold {
		applyHints(&id, in.Hints)
	}

	if s.mergeCatalog(ctx, &id) {
		source = SourceCatalog
	}
	id.Normalize()

	item := itemFromIdentity(user, id, []string{url})
	item.Metadata["source"] = source
	if ocrText != "" {
		item.Metadata["ocrText"] = ocrText
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, apperr.Internal("saving item failed", err)
	}
	return &IdentifyResult{Item: item, Source: source, OCRText: ocrText}, nil
}

// BasicIdentify records an item from 1 to 5 photos and caller-supplied
// fields without calling the vision model.
func (s *IdentificationService) BasicIdentify(ctx context.Context, user *models.User, photos [][]byte, f BasicFields) (*IdentifyResult, error) {
	if len(photos) == 0 {
		return nil, apperr.Validation("photos", "at least one photo is required")
	}
	if len(photos) > MaxBasicPhotos {
		return nil, apperr.Validation("photos", "at most 5 photos are allowed")
	}

	for _, p := range photos {
		if _, err := storage.DetectPhotoType(p); err != nil {
			return nil, photoError("photos", err)
		}
	}
	urls := make([]string, 0, len(photos))
	for _, p := range photos {
		url, err := storage.PutPhoto(ctx, s.photos, "items", user.ID, p)
		if err != nil {
			return nil, photoError("photos", err)
		}
		urls = append(urls, url)
	}

	id := vision.Identity{
		Brand:       strings.TrimSpace(f.Brand),
		Model:       strings.TrimSpace(f.Model),
		ModelNumber: strings.TrimSpace(f.ModelNumber),
		Category:    strings.TrimSpace(f.Category),
	}
	switch {
	case id.Brand != "":
		id.Confidence = 0.5
	case id.Category != "":
		id.Confidence = 0.2
	}

	source := SourceBasic
	if s.mergeCatalog(ctx, &id) {
		source = SourceCatalog
	}
	id.Normalize()

	item := itemFromIdentity(user, id, urls)
	item.Metadata["source"] = source
	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, apperr.Internal("saving item failed", err)
	}
	return &IdentifyResult{Item: item, Source: source}, nil
}

func (s *IdentificationService) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// mergeCatalog overlays a curated device onto id. It reports whether one matched.
func (s *IdentificationService) mergeCatalog(ctx context.Context, id *vision.Identity) bool {
	dev, err := s.store.FindDevice(ctx, id.Brand, id.Model)
	if errors.Is(err, catalog.ErrNotFound) {
		return false
	}
	if err != nil {
		slog.Warn("catalog lookup failed", "brand", id.Brand, "model", id.Model, "error", err)
		return false
	}

	id.Brand = dev.Brand
	id.Model = dev.Model
	if dev.ModelNumber != "" {
		id.ModelNumber = dev.ModelNumber
	}
	id.Category = dev.Category
	if dev.ReleaseYear != 0 {
		id.ReleaseYear = dev.ReleaseYear
	}
	if len(dev.Specifications) > 0 {
		id.Specifications = dev.Specifications
	}
	if len(dev.CommonIssues) > 0 {
		id.CommonIssues = dev.CommonIssues
	}
	if dev.RepairabilityScore != 0 {
		id.RepairabilityScore = dev.RepairabilityScore
	}
	if math.IsNaN(id.Confidence) || id.Confidence < CatalogConfidence {
		id.Confidence = CatalogConfidence
	}
	return true
}

func applyHints(id *vision.Identity, h dto.IdentifyHints) {
	if b := strings.TrimSpace(h.Brand); b != "" {
		id.Brand = b
	}
	if m := strings.TrimSpace(h.Model); m != "" {
		id.Model = m
	}
	if c := strings.TrimSpace(h.Category); c != "" {
		id.Category = c
	}
}

func itemFromIdentity(user *models.User, id vision.Identity, photoURLs []string) *models.Item {
	meta := datatypes.JSONMap{}
	if id.ReleaseYear != 0 {
		meta["releaseYear"] = id.ReleaseYear
	}
	if len(id.Specifications) > 0 {
		meta["specifications"] = id.Specifications
	}
	if len(id.CommonIssues) > 0 {
		meta["commonIssues"] = id.CommonIssues
	}
	if id.RepairabilityScore != 0 {
		meta["repairabilityScore"] = id.RepairabilityScore
	}
	return &models.Item{
		UserID:      user.ID,
		Category:    id.Category,
		Brand:       optional(id.Brand),
		Model:       optional(id.Model),
		ModelNumber: optional(id.ModelNumber),
		Confidence:  id.Confidence,
		PhotoURLs:   photoURLs,
		Metadata:    meta,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// photoError maps storage validation failures to 400 and everything else to 500.
func photoError(field string, err error) error {
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		return apperr.Validation(field, "photo must be JPEG, PNG or WebP")
	case errors.Is(err, storage.ErrTooLarge):
		return apperr.Validation(field, "photo exceeds 8 MB")
	case errors.Is(err, storage.ErrEmpty):
		return apperr.Validation(field, "photo is empty")
	}
	return apperr.Upstream("storing photo failed", err)
}
