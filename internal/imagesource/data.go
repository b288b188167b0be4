package imagesource

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// DataSource decodes base64 data URIs, as sent by browser uploads.
type DataSource struct {
	MaxBytes int64
}

// Fetch implements Source.
func (s DataSource) Fetch(_ context.Context, ref string) (Image, error) {
	limit := limitOrDefault(s.MaxBytes)

	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return Image{}, fmt.Errorf("%w: data URI must be base64 encoded", ErrUnsupportedRef)
	}
	if int64(base64.StdEncoding.DecodedLen(len(payload))) > limit+2 {
		return Image{}, fmt.Errorf("%w: data URI exceeds %d bytes", ErrTooLarge, limit)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode data URI: %w", err)
	}
	if int64(len(data)) > limit {
		return Image{}, fmt.Errorf("%w: data URI is %d bytes", ErrTooLarge, len(data))
	}
	return newImage("data-uri", data)
}
