package imagesource

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// FileSource reads images from the local filesystem. References may be
// plain paths or file:// URLs.
type FileSource struct {
	MaxBytes int64
}

// Fetch implements Source.
func (s FileSource) Fetch(ctx context.Context, ref string) (Image, error) {
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}
	limit := limitOrDefault(s.MaxBytes)

	path := strings.TrimPrefix(ref, "file://")

	info, err := os.Stat(path)
	if err != nil {
		return Image{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() > limit {
		return Image{}, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, path, info.Size())
	}

	f, err := os.Open(path) //nolint:gosec // paths come from the operator
	if err != nil {
		return Image{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	data, err := readLimited(f, limit)
	if err != nil {
		return Image{}, err
	}
	return newImage(ref, data)
}
