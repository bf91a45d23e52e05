package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const iphoneReply = `Here you go:
{"brand":"Apple","model":"iPhone 12","modelNumber":"","category":"Smartphone","releaseYear":2020,
"specifications":{"storage":"128GB"},"commonIssues":["battery"],"repairabilityScore":6,"confidence":0.95}`

func TestIdentifyDeviceStoresItem(t *testing.T) {
	db, store := newDB(t)
	user := seedUser(t, db, "user_ident")
	photos := storage.NewMemoryGateway("https://cdn.test")
	fv := &fakeVision{reply: iphoneReply}
	svc := NewIdentificationService(store, photos, fv, 0)

	res, err := svc.IdentifyDevice(context.Background(), user, IdentifyInput{Image: pngPhoto(t)})
	require.NoError(t, err)

	assert.Equal(t, SourceAI, res.Source)
	assert.Equal(t, "smartphone", res.Item.Category)
	require.NotNil(t, res.Item.Brand)
	assert.Equal(t, "Apple", *res.Item.Brand)
	assert.Nil(t, res.Item.ModelNumber)
	assert.InDelta(t, 0.95, res.Item.Confidence, 1e-9)
	require.Len(t, res.Item.PhotoURLs, 1)
	assert.Contains(t, res.Item.PhotoURLs[0], "https://cdn.test/items/"+user.ID.String()+"/")
	assert.Equal(t, 1, photos.Len())
	assert.Equal(t, 1, fv.calls())

	stored, err := store.GetItem(context.Background(), user.ID, res.Item.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceAI, stored.Metadata["source"])
	assert.EqualValues(t, 2020, stored.Metadata["releaseYear"])
}

func TestIdentifyDeviceUnparseableReplyUsesPlaceholder(t *testing.T) {
	db, store := newDB(t)
	user := seedUser(t, db, "user_placeholder")
	svc := NewIdentificationService(store, storage.NewMemoryGateway(""), &fakeVision{reply: "I am not sure what this is."}, 0)

	res, err := svc.IdentifyDevice(context.Background(), user, IdentifyInput{Image: pngPhoto(t)})
	require.NoError(t, err)
	assert.Equal(t, SourcePlaceholder, res.Source)
	assert.Equal(t, "unknown", res.Item.Category)
	assert.InDelta(t, 0.1, res.Item.Confidence, 1e-9)
}

func TestIdentifyDeviceHintsOnlyBelowThreshold(t *testing.T) {
	db, store := newDB(t)
	user := seedUser(t, db, "user_hints")
	hints := dto.IdentifyHints{Brand: "Samsung", Model: "Galaxy S21", Category: "smartphone"}

	low := NewIdentificationService(store, storage.NewMemoryGateway(""), &fakeVision{reply: `{"brand":"Generic","model":"Phone","category":"electronics","confidence":0.4}`}, 0)
	res, err := low.IdentifyDevice(context.Background(), user, IdentifyInput{Image: pngPhoto(t), Hints: hints})
	require.NoError(t, err)
	assert.Equal(t, "Samsung", *res.Item.Brand)
	assert.Equal(t, "Galaxy S21", *res.Item.Model)

	high := NewIdentificationService(store, storage.NewMemoryGateway(""), &fakeVision{reply: iphoneReply}, 0)
	res, err = high.IdentifyDevice(context.Background(), user, IdentifyInput{Image: pngPhoto(t), Hints: hints})
	require.NoError(t, err)
	assert.Equal(t, "Apple", *res.Item.Brand)
}

func TestIdentifyDeviceCatalogMatchWins(t *testing.T) {
	db, store := newDB(t)
	user := seedUser(t, db, "user_catalog")
	require.NoError(t, store.UpsertDevice(context.Background(), &models.CatalogDevice{
		Brand: "Apple", Model: "iPhone 12", ModelNumber: "A2172", Category: "smartphone", RepairabilityScore: 6,
	}))
	fv := &fakeVision{reply: `{"brand":"apple","model":"iphone 12","category":"phone","confidence":0.3}`}
	svc := NewIdentificationService(store, storage.NewMemoryGateway(""), fv, 0)

	res, err := svc.IdentifyDevice(context.Background(), user, IdentifyInput{Image: pngPhoto(t)})
	require.NoError(t, err)
	assert.Equal(t, SourceCatalog, res.Source)
	assert.Equal(t, "A2172", *res.Item.ModelNumber)
	assert.Equal(t, "smartphone", res.Item.Category)
	assert.GreaterOrEqual(t, res.Item.Confidence, CatalogConfidence)
}

func TestIdentifyDeviceOCR(t *testing.T) {
	db, store := newDB(t)
	user := seedUser(t, db, "user_ocr")

	fv := &fakeVision{reply: `{"brand":"Sony","model":"Bravia","category":"electronics","confidence":0.7}`, ocr: "MODEL KDL-40W600B\nMADE IN MALAYSIA"}
	svc := NewIdentificationService(store, storage.NewMemoryGateway(""), fv, 0)
	res, err := svc.IdentifyDevice(context.Background(), user, IdentifyInput{Image: pngPhoto(t), ExtractText: true})
	require.NoError(t, err)
	assert.Equal(t, 2, fv.calls())
	assert.Equal(t, "KDL-40W600B", *res.Item.ModelNumber)
	assert.Contains(t, res.OCRText, "MADE IN MALAYSIA")

	failing := &fakeVision{reply: fv.reply, ocrErr: errVisionDown}
	svc = NewIdentificationService(store, storage.NewMemoryGateway(""), failing, 0)
	res, err = svc.IdentifyDevice(context.Background(), user, IdentifyInput{Image: pngPhoto(t), ExtractText: true})
	require.NoError(t, err)
	assert.Empty(t, res.OCRText)
	assert.Nil(t, res.Item.ModelNumber)
}

func TestCorruptImageStoresNothing(t *testing.T) {
	db, store := newDB(t)
	user := seedUser(t, db, "user_corrupt")
	photos := storage.NewMemoryGateway("")
	fv := &fakeVision{reply: iphoneReply}
	svc := NewIdentificationService(store, photos, fv, 0)

	corrupt := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0xde, 0xad}, 64)...)
	_, err := svc.IdentifyDevice(context.Background(), user, IdentifyInput{Image: corrupt})
	require.True(t, apperr.IsKind(err, apperr.KindValidation), "got %v", err)
	assert.Equal(t, "image", apperr.From(err).Details["field"])
	assert.Zero(t, photos.Len())
	assert.Zero(t, fv.calls())

	_, err = svc.BasicIdentify(context.Background(), user, [][]byte{pngPhoto(t), []byte("GIF89a")}, BasicFields{Brand: "Apple"})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Zero(t, photos.Len(), "no photo is stored when any of them is rejected")
}

func TestIdentifyDeviceFailures(t *testing.T) {
	db, store := newDB(t)
	user := seedUser(t, db, "user_fail")
	ctx := context.Background()

	_, err := NewIdentificationService(store, storage.NewMemoryGateway(""), nil, 0).IdentifyDevice(ctx, user, IdentifyInput{Image: pngPhoto(t)})
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))

	svc := NewIdentificationService(store, storage.NewMemoryGateway(""), &fakeVision{err: errVisionDown}, 0)
	_, err = svc.IdentifyDevice(ctx, user, IdentifyInput{Image: pngPhoto(t)})
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))

	_, err = svc.IdentifyDevice(ctx, user, IdentifyInput{Image: []byte("GIF89a not really")})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	broken := storage.NewMemoryGateway("")
	broken.FailWith(errVisionDown)
	svc = NewIdentificationService(store, broken, &fakeVision{reply: iphoneReply}, 0)
	_, err = svc.IdentifyDevice(ctx, user, IdentifyInput{Image: pngPhoto(t)})
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))

	items, total, err := store.ListItems(ctx, user.ID, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestBasicIdentify(t *testing.T) {
	db, store := newDB(t)
	user := seedUser(t, db, "user_basic")
	photos := storage.NewMemoryGateway("")
	svc := NewIdentificationService(store, photos, nil, 0)
	ctx := context.Background()

	res, err := svc.BasicIdentify(ctx, user, [][]byte{pngPhoto(t), pngPhoto(t)}, BasicFields{Brand: "Dyson", Model: "V8", Category: "Vacuum"})
	require.NoError(t, err)
	assert.Equal(t, SourceBasic, res.Source)
	assert.Equal(t, "vacuum", res.Item.Category)
	assert.InDelta(t, 0.5, res.Item.Confidence, 1e-9)
	assert.Len(t, res.Item.PhotoURLs, 2)

	res, err = svc.BasicIdentify(ctx, user, [][]byte{pngPhoto(t)}, BasicFields{Category: "furniture"})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, res.Item.Confidence, 1e-9)
	assert.Nil(t, res.Item.Brand)

	_, err = svc.BasicIdentify(ctx, user, nil, BasicFields{})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	six := make([][]byte, MaxBasicPhotos+1)
	for i := range six {
		six[i] = pngPhoto(t)
	}
	_, err = svc.BasicIdentify(ctx, user, six, BasicFields{})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Equal(t, 3, photos.Len())
}
