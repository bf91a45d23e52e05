package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/database"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/vision"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testUpgradeURL = "/subscription/create-checkout"

// fakeVision answers identify prompts with reply and OCR prompts with ocr.
type fakeVision struct {
	mu      sync.Mutex
	reply   string
	ocr     string
	err     error
	ocrErr  error
	prompts []string
}

func (f *fakeVision) Name() string { return "fake" }

func (f *fakeVision) Complete(_ context.Context, req vision.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, req.Prompt)
	if req.Prompt == vision.OCRPrompt {
		return f.ocr, f.ocrErr
	}
	return f.reply, f.err
}

func (f *fakeVision) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

var errVisionDown = errors.New("vision backend unavailable")

func pngPhoto(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for x := 0; x < 32; x++ {
		for y := 0; y < 24; y++ {
			img.Set(x, y, color.RGBA{30, 120, 200, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type testEnv struct {
	db    *gorm.DB
	store *catalog.Store
}

func newDB(t *testing.T) (*gorm.DB, *catalog.Store) {
	t.Helper()
	db := database.NewTestDB(t)
	return db, catalog.NewStore(db)
}

func newGate(db *gorm.DB) *entitlement.Gate {
	return entitlement.NewGate(db, entitlement.NewMemoryCache(), entitlement.Config{UpgradeURL: testUpgradeURL})
}

func seedUser(t *testing.T, db *gorm.DB, clerkID string) *models.User {
	t.Helper()
	u := &models.User{ClerkID: clerkID, Email: clerkID + "@example.com"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedItem(t *testing.T, store *catalog.Store, owner *models.User, brand, model, category string) *models.Item {
	t.Helper()
	item := &models.Item{UserID: owner.ID, Category: category, Brand: optional(brand), Model: optional(model), Confidence: 0.8}
	require.NoError(t, store.CreateItem(context.Background(), item))
	return item
}

func seedDefect(t *testing.T, store *catalog.Store, owner *models.User, item *models.Item, severity models.Severity, symptoms ...string) *models.Defect {
	t.Helper()
	d := &models.Defect{ItemID: item.ID, Symptoms: symptoms, PhotoURLs: []string{}, Severity: severity}
	require.NoError(t, store.CreateDefect(context.Background(), owner.ID, d))
	return d
}

func grantPro(t *testing.T, db *gorm.DB, user *models.User) {
	t.Helper()
	sub := &models.Subscription{
		UserID:               &user.ID,
		ClerkUserID:          user.ClerkID,
		StripeCustomerID:     "cus_" + user.ClerkID,
		StripeSubscriptionID: "sub_" + user.ClerkID,
		Status:               models.SubscriptionActive,
		CurrentPeriodEnd:     time.Now().Add(30 * 24 * time.Hour),
	}
	require.NoError(t, db.Create(sub).Error)
}
