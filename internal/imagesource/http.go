package imagesource

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPSource downloads images over HTTP(S).
type HTTPSource struct {
	Client   *http.Client
	MaxBytes int64
}

// NewHTTPSource creates an HTTP source with a bounded client.
func NewHTTPSource(maxBytes int64) *HTTPSource {
	return &HTTPSource{
		Client:   &http.Client{Timeout: 60 * time.Second},
		MaxBytes: maxBytes,
	}
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, ref string) (Image, error) {
	limit := limitOrDefault(s.MaxBytes)
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return Image{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("failed to download %s: %w", ref, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Image{}, fmt.Errorf("failed to download %s: status %d", ref, resp.StatusCode)
	}
	if resp.ContentLength > limit {
		return Image{}, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, ref, resp.ContentLength)
	}

	data, err := readLimited(resp.Body, limit)
	if err != nil {
		return Image{}, err
	}
	return newImage(ref, data)
}
