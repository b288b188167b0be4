package imagesource

import (
	"context"
	"fmt"
	"strings"
)

// Router dispatches references to the source for their scheme. A nil
// source disables its scheme.
type Router struct {
	File Source
	HTTP Source
	S3   Source
	Data Source
}

// NewRouter creates a router for files, HTTP and data URIs. S3 is enabled
// when s3Source is not nil.
func NewRouter(maxBytes int64, s3Source Source) *Router {
	return &Router{
		File: FileSource{MaxBytes: maxBytes},
		HTTP: NewHTTPSource(maxBytes),
		S3:   s3Source,
		Data: DataSource{MaxBytes: maxBytes},
	}
}

// Fetch implements Source.
func (r *Router) Fetch(ctx context.Context, ref string) (Image, error) {
	ref = strings.TrimSpace(ref)
	var src Source
	switch {
	case ref == "":
		return Image{}, fmt.Errorf("%w: empty reference", ErrUnsupportedRef)
	case strings.HasPrefix(ref, "s3://"):
		src = r.S3
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		src = r.HTTP
	case strings.HasPrefix(ref, "data:"):
		src = r.Data
	default:
		src = r.File
	}
	if src == nil {
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedRef, ref)
	}
	return src.Fetch(ctx, ref)
}
