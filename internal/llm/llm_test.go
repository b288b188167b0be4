package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Veraticus/plancost/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "anthropic", config: Config{Provider: "anthropic", APIKey: "k"}},
		{name: "default provider", config: Config{APIKey: "k"}},
		{name: "openai", config: Config{Provider: "OpenAI", APIKey: "k"}},
		{name: "missing key", config: Config{Provider: "anthropic"}, wantErr: true},
		{name: "missing openai key", config: Config{Provider: "openai"}, wantErr: true},
		{name: "unknown provider", config: Config{Provider: "gemini", APIKey: "k"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	c, err := newAnthropicClient(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, anthropicDefaultModel, c.model)
	assert.Equal(t, anthropicBaseURL, c.baseURL)
	assert.Equal(t, defaultMaxTokens, c.maxTokens)
	assert.Equal(t, defaultTimeout, c.httpClient.Timeout)

	o, err := newOpenAIClient(Config{APIKey: "k", Model: "gpt-4.1", BaseURL: "http://proxy/v1/", Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", o.model)
	assert.Equal(t, "http://proxy/v1", o.baseURL)
	assert.Equal(t, time.Second, o.httpClient.Timeout)
}

func TestAnthropicAnalyzeImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "system prompt", req.System)
		require.Len(t, req.Messages, 1)
		require.Len(t, req.Messages[0].Content, 2)
		img := req.Messages[0].Content[0]
		assert.Equal(t, "image", img.Type)
		require.NotNil(t, img.Source)
		assert.Equal(t, "image/png", img.Source.MediaType)
		assert.Equal(t, base64.StdEncoding.EncodeToString(pngBytes), img.Source.Data)
		assert.Equal(t, "Analyse la page", req.Messages[0].Content[1].Text)

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"categories\":"},{"type":"text","text":"[]}"}]}`))
	}))
	defer server.Close()

	client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	got, err := client.AnalyzeImage(context.Background(), VisionRequest{
		System: "system prompt",
		Prompt: "Analyse la page",
		Images: []Image{{MediaType: "image/png", Data: pngBytes}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"categories":[]}`, got)
}

func TestOpenAIAnalyzeImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Messages []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		var parts []openAIPart
		require.NoError(t, json.Unmarshal(req.Messages[1].Content, &parts))
		require.Len(t, parts, 2)
		assert.Equal(t, "text", parts[0].Type)
		require.NotNil(t, parts[1].ImageURL)
		assert.Contains(t, parts[1].ImageURL.URL, "data:image/png;base64,")

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client, err := newOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	got, err := client.AnalyzeImage(context.Background(), VisionRequest{
		System: "sys",
		Prompt: "Analyse",
		Images: []Image{{MediaType: "image/png", Data: pngBytes}},
	})
	require.NoError(t, err)
	assert.Equal(t, "{}", got)
}

func TestComplete(t *testing.T) {
	anthropic := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages[0].Content, 1)
		assert.Equal(t, "texte", req.Messages[0].Content[0].Text)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer anthropic.Close()

	openai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "texte", req.Messages[0].Content)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer openai.Close()

	a, err := NewClient(Config{Provider: "anthropic", APIKey: "k", BaseURL: anthropic.URL})
	require.NoError(t, err)
	got, err := a.Complete(context.Background(), "sys", "texte")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)

	o, err := NewClient(Config{Provider: "openai", APIKey: "k", BaseURL: openai.URL})
	require.NoError(t, err)
	got, err = o.Complete(context.Background(), "", "texte")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status        int
		wantRetryable bool
	}{
		{http.StatusTooManyRequests, true},
		{StatusOverloaded, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer server.Close()

			for _, provider := range []string{"anthropic", "openai"} {
				client, err := NewClient(Config{Provider: provider, APIKey: "k", BaseURL: server.URL})
				require.NoError(t, err)

				_, err = client.Complete(context.Background(), "", "x")
				require.Error(t, err)
				assert.Equal(t, tt.wantRetryable, common.IsRetryable(err), provider)
				assert.Equal(t, tt.status, StatusCode(err), provider)

				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, provider, apiErr.Provider)
				assert.Contains(t, apiErr.Error(), "nope")
			}
		})
	}
}

func TestEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = client.Complete(context.Background(), "", "x")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestTransportErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: url})
	require.NoError(t, err)
	_, err = client.Complete(context.Background(), "", "x")
	require.Error(t, err)
	assert.True(t, common.IsRetryable(err))
	assert.Zero(t, StatusCode(err))
}

func TestIsTransientStatus(t *testing.T) {
	assert.True(t, IsTransientStatus(429))
	assert.True(t, IsTransientStatus(529))
	assert.True(t, IsTransientStatus(500))
	assert.False(t, IsTransientStatus(400))
	assert.False(t, IsTransientStatus(413))
}
