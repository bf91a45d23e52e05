package services

import (
	"context"
	"strings"
	"testing"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestReportDefect(t *testing.T) {
	db, store := newDB(t)
	user := seedUser(t, db, "user_reporter")
	item := seedItem(t, store, user, "Apple", "iPhone 12", "smartphone")
	photos := storage.NewMemoryGateway("")
	svc := NewDefectService(store, photos, nil)

	defect, err := svc.Report(context.Background(), user, dto.ReportDefectRequest{
		ItemID:      item.ID.String(),
		Symptoms:    []string{"  battery drains fast ", "", "gets hot"},
		Description: strPtr("  started after an update  "),
		Severity:    "high",
	}, [][]byte{pngPhoto(t)})
	require.NoError(t, err)

	assert.Equal(t, []string{"battery drains fast", "gets hot"}, defect.Symptoms)
	assert.Equal(t, models.SeverityHigh, defect.Severity)
	assert.Equal(t, "started after an update", *defect.Description)
	assert.Equal(t, user.ID, defect.UserID)
	require.Len(t, defect.PhotoURLs, 1)
	assert.True(t, strings.HasPrefix(defect.PhotoURLs[0], "/defects/"))
}

func TestReportDefectDefaultsSeverity(t *testing.T) {
	db, store := newDB(t)
	user := seedUser(t, db, "user_default_sev")
	item := seedItem(t, store, user, "Dyson", "V8", "vacuum")

	defect, err := NewDefectService(store, storage.NewMemoryGateway(""), nil).Report(context.Background(), user,
		dto.ReportDefectRequest{ItemID: item.ID.String(), Symptoms: []string{"loses suction"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SeverityMedium, defect.Severity)
	assert.Nil(t, defect.Description)
	assert.Empty(t, defect.PhotoURLs)
}

func TestReportDefectValidation(t *testing.T) {
	db, store := newDB(t)
	user := seedUser(t, db, "user_validation")
	item := seedItem(t, store, user, "Apple", "iPhone 12", "smartphone")
	svc := NewDefectService(store, storage.NewMemoryGateway(""), nil)
	id := item.ID.String()

	tooMany := make([]string, MaxSymptoms+1)
	for i := range tooMany {
		tooMany[i] = "symptom"
	}

	tests := map[string]struct {
		req   dto.ReportDefectRequest
		field string
	}{
		"bad item id":      {dto.ReportDefectRequest{ItemID: "nope", Symptoms: []string{"x"}}, "itemId"},
		"no symptoms":      {dto.ReportDefectRequest{ItemID: id, Symptoms: []string{" ", ""}}, "symptoms"},
		"too many":         {dto.ReportDefectRequest{ItemID: id, Symptoms: tooMany}, "symptoms"},
		"long symptom":     {dto.ReportDefectRequest{ItemID: id, Symptoms: []string{strings.Repeat("a", MaxSymptomLength+1)}}, "symptoms"},
		"bad severity":     {dto.ReportDefectRequest{ItemID: id, Symptoms: []string{"x"}, Severity: "APOCALYPTIC"}, "severity"},
		"long description": {dto.ReportDefectRequest{ItemID: id, Symptoms: []string{"x"}, Description: strPtr(strings.Repeat("d", MaxDescriptionLen+1))}, "description"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Report(context.Background(), user, tt.req, nil)
			require.True(t, apperr.IsKind(err, apperr.KindValidation), "got %v", err)
			assert.Equal(t, tt.field, apperr.From(err).Details["field"])
		})
	}
}

func TestReportDefectOnForeignItemIsNotFound(t *testing.T) {
	db, store := newDB(t)
	alice := seedUser(t, db, "user_alice")
	bob := seedUser(t, db, "user_bob")
	item := seedItem(t, store, alice, "Apple", "iPhone 12", "smartphone")
	photos := storage.NewMemoryGateway("")
	svc := NewDefectService(store, photos, nil)

	_, err := svc.Report(context.Background(), bob, dto.ReportDefectRequest{ItemID: item.ID.String(), Symptoms: []string{"cracked"}}, [][]byte{pngPhoto(t)})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Zero(t, photos.Len())

	_, err = svc.Report(context.Background(), alice, dto.ReportDefectRequest{ItemID: uuid.NewString(), Symptoms: []string{"cracked"}}, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestReportDefectSuspiciousTextIsAccepted(t *testing.T) {
	db, store := newDB(t)
	user := seedUser(t, db, "user_spammy")
	item := seedItem(t, store, user, "Apple", "iPhone 12", "smartphone")

	defect, err := NewDefectService(store, storage.NewMemoryGateway(""), nil).Report(context.Background(), user,
		dto.ReportDefectRequest{ItemID: item.ID.String(), Symptoms: []string{"visit https://spam.example to fix"}}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, defect.ID)
}

func TestListDefects(t *testing.T) {
	db, store := newDB(t)
	user := seedUser(t, db, "user_lister")
	other := seedUser(t, db, "user_other")
	phone := seedItem(t, store, user, "Apple", "iPhone 12", "smartphone")
	vacuum := seedItem(t, store, user, "Dyson", "V8", "vacuum")
	seedDefect(t, store, user, phone, models.SeverityLow, "scratch")
	seedDefect(t, store, user, vacuum, models.SeverityHigh, "no power")
	svc := NewDefectService(store, storage.NewMemoryGateway(""), nil)

	all, err := svc.List(context.Background(), user, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := svc.List(context.Background(), user, vacuum.ID.String())
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, []string{"no power"}, filtered[0].Symptoms)

	none, err := svc.List(context.Background(), other, "")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.List(context.Background(), user, "bad")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}
