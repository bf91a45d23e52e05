// Package storage persists uploaded photo bytes and returns a retrievable URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// MaxPhotoBytes is the largest accepted photo upload.
const MaxPhotoBytes = 8 << 20

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image exceeds size limit")
	ErrEmpty           = errors.New("image is empty")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Gateway stores an object under key and returns a URL clients can fetch.
type Gateway interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// DetectPhotoType sniffs the real content type of data and rejects anything
// other than JPEG, PNG or WebP.
func DetectPhotoType(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if len(data) > MaxPhotoBytes {
		return "", ErrTooLarge
	}
	ct := http.DetectContentType(data)
	if _, ok := extensions[ct]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ct)
	}
	return ct, nil
}

// NewKey builds <kind>/<owner>/<uuid><ext>.
func NewKey(kind string, owner uuid.UUID, contentType string) string {
	return fmt.Sprintf("%s/%s/%s%s", kind, owner, uuid.New(), extensions[contentType])
}

// PutPhoto validates data and stores it under a fresh key.
func PutPhoto(ctx context.Context, gw Gateway, kind string, owner uuid.UUID, data []byte) (string, error) {
	ct, err := DetectPhotoType(data)
	if err != nil {
		return "", err
	}
	return gw.Put(ctx, NewKey(kind, owner, ct), data, ct)
}
