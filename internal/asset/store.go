// Package asset manages uploaded product images.
package asset

import (
	"context"
	"errors"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrEmpty           = errors.New("image payload is empty")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrInvalidRef      = errors.New("invalid asset reference")
)

// Store persists image bytes and hands back a reference that can later be
// served, checked and deleted. Delete must tolerate already-missing files.
type Store interface {
	Store(ctx context.Context, data []byte, originalName string) (string, error)
	Delete(ctx context.Context, ref string) error
	Exists(ctx context.Context, ref string) (bool, error)
	Owns(ref string) bool
	List(ctx context.Context) ([]string, error)
}

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// DetectImage sniffs data and returns the file extension for a supported image type.
func DetectImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if ext, ok := allowedTypes[m.String()]; ok {
			return ext, nil
		}
	}
	return "", ErrUnsupportedType
}
