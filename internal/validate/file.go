package validate

import (
	"errors"
	"fmt"
	"strings"
)

// Photo file validation errors.
var (
	ErrNotImage     = errors.New("file is not a supported image type")
	ErrFileTooLarge = errors.New("file is too large")
	ErrEmptyFile    = errors.New("file is empty")
)

// MaxPhotoSizeBytes is the upload ceiling for a single photo.
const MaxPhotoSizeBytes = 10 * 1024 * 1024 // 10MB

// AllowedImageTypes lists the MIME types accepted for location photos.
var AllowedImageTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
}

// ImageFile validates a photo's MIME type and byte size before it may be
// staged for upload.
func ImageFile(contentType string, sizeBytes int64) error {
	normalized := strings.ToLower(strings.TrimSpace(contentType))

	allowed := false
	for _, t := range AllowedImageTypes {
		if normalized == t {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %q", ErrNotImage, contentType)
	}

	if sizeBytes <= 0 {
		return ErrEmptyFile
	}
	if sizeBytes > MaxPhotoSizeBytes {
		return fmt.Errorf("%w: %d bytes, maximum is %d", ErrFileTooLarge, sizeBytes, MaxPhotoSizeBytes)
	}
	return nil
}
