package llm

import (
	"context"
	"time"
)

// Client defines the interface for LLM providers.
type Client interface {
	// AnalyzeImage sends one or more images with a prompt and returns the
	// model's text reply.
	AnalyzeImage(ctx context.Context, req VisionRequest) (string, error)
	// Complete sends a text-only prompt.
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Image is an encoded image ready to send to a provider.
type Image struct {
	MediaType string
	Data      []byte
}

// VisionRequest is one multimodal request.
type VisionRequest struct {
	System string
	Prompt string
	Images []Image
}

// Config holds provider settings.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	// BaseURL overrides the provider endpoint, mostly for tests and proxies.
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

const (
	defaultMaxTokens   = 8192
	defaultTemperature = 0.2
	defaultTimeout     = 120 * time.Second
)

func (c Config) withDefaults(model, baseURL string) Config {
	if c.Model == "" {
		c.Model = model
	}
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	if c.Temperature == 0 {
		c.Temperature = defaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	return c
}
