// Package llm provides vision model clients used to read construction plans.
// It supports Anthropic and OpenAI over their HTTP APIs and classifies API
// failures as transient or terminal so callers can retry.
package llm
