// Package imagesource loads plan page images from local files, HTTP URLs,
// S3 buckets and data URIs, enforcing a size cap before anything is sent to
// a vision model.
package imagesource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Veraticus/plancost/internal/common"
)

// DefaultMaxBytes is the largest image accepted when no limit is configured.
const DefaultMaxBytes int64 = 5 << 20

var (
	// ErrTooLarge is returned when an image exceeds the configured size.
	ErrTooLarge = common.ErrImageTooLarge
	// ErrNotImage is returned when the content is not a supported image.
	ErrNotImage = errors.New("content is not a supported image")
	// ErrUnsupportedRef is returned when no source handles a reference.
	ErrUnsupportedRef = errors.New("unsupported image reference")
)

var supportedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// Image is a fetched image.
type Image struct {
	Ref       string
	MediaType string
	Data      []byte
}

// Source fetches an image by reference.
type Source interface {
	Fetch(ctx context.Context, ref string) (Image, error)
}

func limitOrDefault(n int64) int64 {
	if n <= 0 {
		return DefaultMaxBytes
	}
	return n
}

// readLimited reads at most limit bytes and fails with ErrTooLarge when
// more are available.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}

// newImage sniffs the media type of data and rejects anything that is not
// a supported image.
func newImage(ref string, data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: %s is empty", ErrNotImage, ref)
	}
	mediaType := http.DetectContentType(data)
	if !supportedTypes[mediaType] {
		return Image{}, fmt.Errorf("%w: %s is %s", ErrNotImage, ref, mediaType)
	}
	return Image{Ref: ref, MediaType: mediaType, Data: data}, nil
}
