package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDetectPhotoType(t *testing.T) {
	ct, err := DetectPhotoType(tinyPNG(t))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	_, err = DetectPhotoType([]byte("%PDF-1.4 not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = DetectPhotoType(nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = DetectPhotoType(make([]byte, MaxPhotoBytes+1))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestNewKeyLayout(t *testing.T) {
	owner := uuid.New()
	key := NewKey("items", owner, "image/webp")
	parts := strings.Split(key, "/")
	require.Len(t, parts, 3)
	assert.Equal(t, "items", parts[0])
	assert.Equal(t, owner.String(), parts[1])
	assert.True(t, strings.HasSuffix(parts[2], ".webp"))
}

func TestLocalGatewayWritesUnderRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "uploads")
	gw, err := NewLocalGateway(root, "http://localhost:8080/")
	require.NoError(t, err)

	url, err := gw.Put(context.Background(), "items/u1/a.png", []byte("data"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/items/u1/a.png", url)

	got, err := os.ReadFile(filepath.Join(root, "items", "u1", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))

	_, err = gw.Put(context.Background(), "../escape.png", []byte("x"), "image/png")
	assert.Error(t, err)
}

func TestPutPhotoStoresBytes(t *testing.T) {
	gw := NewMemoryGateway("mem://bucket")
	data := tinyPNG(t)

	url, err := PutPhoto(context.Background(), gw, "defects", uuid.New(), data)
	require.NoError(t, err)
	key := strings.TrimPrefix(url, "mem://bucket/")
	stored, ok := gw.Get(key)
	require.True(t, ok)
	assert.Equal(t, data, stored)
}

func TestNewS3GatewayClampsExpiry(t *testing.T) {
	gw, err := NewS3Gateway(S3Config{Endpoint: "localhost:9000", Bucket: "photos", PresignExpiry: 30 * 24 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, float64(7*24), gw.expiry.Hours())
}
