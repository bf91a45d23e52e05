package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/logging"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/storage"
	"github.com/google/uuid"
)

const (
	MaxSymptoms       = 20
	MaxSymptomLength  = 200
	MaxDescriptionLen = 2000
	MaxDefectPhotos   = 5
)

type DefectService struct {
	store    *catalog.Store
	photos   storage.Gateway
	screener *ContentScreener
}

func NewDefectService(store *catalog.Store, photos storage.Gateway, screener *ContentScreener) *DefectService {
	if screener == nil {
		screener = NewContentScreener()
	}
	return &DefectService{store: store, photos: photos, screener: screener}
}

// Report validates req, stores any photos and records the defect against an
// item the user owns.
func (s *DefectService) Report(ctx context.Context, user *models.User, req dto.ReportDefectRequest, photos [][]byte) (*models.Defect, error) {
	itemID, err := uuid.Parse(strings.TrimSpace(req.ItemID))
	if err != nil {
		return nil, apperr.Validation("itemId", "itemId must be a valid id")
	}

	symptoms := make([]string, 0, len(req.Symptoms))
	for _, sym := range req.Symptoms {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		if len(sym) > MaxSymptomLength {
			return nil, apperr.Validation("symptoms", "symptom is too long").WithDetails("maxLength", MaxSymptomLength)
		}
		symptoms = append(symptoms, sym)
	}
	if len(symptoms) == 0 {
		return nil, apperr.Validation("symptoms", "at least one symptom is required")
	}
	if len(symptoms) > MaxSymptoms {
		return nil, apperr.Validation("symptoms", "too many symptoms").WithDetails("max", MaxSymptoms)
	}

	severity := models.SeverityMedium
	if req.Severity != "" {
		severity = models.Severity(strings.ToUpper(strings.TrimSpace(req.Severity)))
		if !severity.Valid() {
			return nil, apperr.Validation("severity", "severity must be LOW, MEDIUM, HIGH or CRITICAL")
		}
	}

	var description *string
	if req.Description != nil {
		d := strings.TrimSpace(*req.Description)
		if len(d) > MaxDescriptionLen {
			return nil, apperr.Validation("description", "description is too long").WithDetails("maxLength", MaxDescriptionLen)
		}
		if d != "" {
			description = &d
		}
	}

	if len(photos) > MaxDefectPhotos {
		return nil, apperr.Validation("photos", "at most 5 photos are allowed")
	}

	// Ownership is checked before any bytes are stored.
	if _, err := s.store.GetItem(ctx, user.ID, itemID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, apperr.NotFound("item")
		}
		return nil, apperr.Internal("loading item failed", err)
	}

	for _, p := range photos {
		if _, err := storage.DetectPhotoType(p); err != nil {
			return nil, photoError("photos", err)
		}
	}
	urls := make([]string, 0, len(photos))
	for _, p := range photos {
		url, err := storage.PutPhoto(ctx, s.photos, "defects", user.ID, p)
		if err != nil {
			return nil, photoError("photos", err)
		}
		urls = append(urls, url)
	}

	s.screen(ctx, user, itemID, symptoms, description)

	defect := &models.Defect{
		ItemID:      itemID,
		Symptoms:    symptoms,
		Description: description,
		PhotoURLs:   urls,
		Severity:    severity,
	}
	if err := s.store.CreateDefect(ctx, user.ID, defect); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, apperr.NotFound("item")
		}
		return nil, apperr.Internal("saving defect failed", err)
	}
	return defect, nil
}

// screen audits suspicious free text. It never rejects the report.
func (s *DefectService) screen(ctx context.Context, user *models.User, itemID uuid.UUID, symptoms []string, description *string) {
	texts := symptoms
	if description != nil {
		texts = append(append([]string{}, symptoms...), *description)
	}
	for _, text := range texts {
		if ok, reason := s.screener.Screen(text); !ok {
			logging.Audit(ctx, logging.ActionDefectSuspicious,
				slog.String("user_id", user.ClerkID),
				slog.String("item_id", itemID.String()),
				slog.String("reason", reason),
			)
			return
		}
	}
}

func (s *DefectService) List(ctx context.Context, user *models.User, itemID string) ([]models.Defect, error) {
	var filter *uuid.UUID
	if itemID != "" {
		id, err := uuid.Parse(itemID)
		if err != nil {
			return nil, apperr.Validation("itemId", "itemId must be a valid id")
		}
		filter = &id
	}
	defects, err := s.store.ListDefects(ctx, user.ID, filter)
	if err != nil {
		return nil, apperr.Internal("listing defects failed", err)
	}
	return defects, nil
}
