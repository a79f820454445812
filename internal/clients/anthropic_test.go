package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"claimcheck/internal/config"
	"claimcheck/internal/logger"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestAnthropicClient(baseURL string) (*AnthropicClient, *test.Hook) {
	cfg := &config.Config{
		AnthropicAPIKey: "test-api-key",
		ClaudeModel:     "claude-3-sonnet-20240229",
	}

	log, hook := test.NewNullLogger()
	client := NewAnthropicClient(cfg)
	client.logger = log
	client.backoff = time.Millisecond
	if baseURL != "" {
		client.baseURL = baseURL
	}

	return client, hook
}

func TestNewAnthropicClient(t *testing.T) {
	client := NewAnthropicClient(&config.Config{
		AnthropicAPIKey: "test-api-key",
		ClaudeModel:     "claude-3-sonnet-20240229",
	})

	assert.NotNil(t, client)
	assert.Equal(t, "test-api-key", client.apiKey)
	assert.Equal(t, "claude-3-sonnet-20240229", client.model)
	assert.Equal(t, "https://api.anthropic.com/v1/messages", client.baseURL)
	assert.Equal(t, 120*time.Second, client.httpClient.Timeout)
	assert.Equal(t, "anthropic", client.Provider())
}

func TestAnthropicError_Error(t *testing.T) {
	err := &AnthropicError{
		Type:    "invalid_request_error",
		Message: "Missing required field",
	}

	assert.Equal(t, "anthropic API error (invalid_request_error): Missing required field", err.Error())
}

func TestAnthropicClient_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "test-api-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var request AnthropicRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		assert.Equal(t, "Test system prompt", request.System)
		assert.Equal(t, "Test prompt", request.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(AnthropicResponse{
			ID:      "msg_123",
			Content: []AnthropicContent{{Type: "text", Text: "This is a test response from Claude"}},
			Usage:   AnthropicUsage{InputTokens: 50, OutputTokens: 25},
		})
	}))
	defer server.Close()

	client, hook := setupTestAnthropicClient(server.URL + "/v1/messages")

	ctx := logger.ContextWithCorrelationID(context.Background(), "test-correlation-123")
	result, err := client.Complete(ctx, "test-agent", "Test prompt", "Test system prompt")

	require.NoError(t, err)
	assert.Equal(t, "This is a test response from Claude", result)
	require.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, "test-correlation-123", hook.LastEntry().Data["correlation_id"])
}

func TestAnthropicClient_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"Invalid prompt format"}}`))
	}))
	defer server.Close()

	client, _ := setupTestAnthropicClient(server.URL)

	result, err := client.Complete(context.Background(), "test-agent", "Test prompt", "")

	require.Error(t, err)
	assert.Empty(t, result)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "Invalid prompt format")
	assert.False(t, IsRetryableError(err))
}

func TestAnthropicClient_Complete_RateLimitedAfterRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _ := setupTestAnthropicClient(server.URL)

	result, err := client.Complete(context.Background(), "test-agent", "Test prompt", "")

	require.Error(t, err)
	assert.Empty(t, result)
	assert.True(t, IsRateLimitError(err))
	assert.True(t, IsRetryableError(err))
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestAnthropicClient_makeRequestWithRetry_Success(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "test", string(body))
		if callCount == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(AnthropicResponse{
			Content: []AnthropicContent{{Type: "text", Text: "Success after retry"}},
		})
	}))
	defer server.Close()

	client, _ := setupTestAnthropicClient("")

	ctx := context.Background()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, server.URL, bytes.NewBufferString("test"))

	resp, err := client.makeRequestWithRetry(ctx, req, "test-agent", 2)

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 2, callCount)
	resp.Body.Close()
}

func TestAnthropicClient_makeRequestWithRetry_ExceedsMaxRetries(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _ := setupTestAnthropicClient("")

	ctx := context.Background()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, server.URL, bytes.NewBufferString("test"))

	resp, err := client.makeRequestWithRetry(ctx, req, "test-agent", 2)

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "server error after retries")
	assert.Equal(t, 3, callCount) // Initial attempt + 2 retries
}

func TestAnthropicClient_makeRequestWithRetry_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _ := setupTestAnthropicClient("")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, server.URL, bytes.NewBufferString("test"))

	resp, err := client.makeRequestWithRetry(ctx, req, "test-agent", 2)

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "context deadline exceeded")
}

func TestAnthropicClient_buildAnthropicRequest(t *testing.T) {
	client, _ := setupTestAnthropicClient("")

	tests := []struct {
		name         string
		systemPrompt string
	}{
		{name: "basic request", systemPrompt: ""},
		{name: "request with system prompt", systemPrompt: "Test system prompt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := client.buildAnthropicRequest("Test prompt", tt.systemPrompt)

			assert.Equal(t, "claude-3-sonnet-20240229", result.Model)
			assert.Equal(t, 4000, result.MaxTokens)
			assert.Equal(t, 0.1, result.Temperature)
			require.Len(t, result.Messages, 1)
			assert.Equal(t, "user", result.Messages[0].Role)
			assert.Equal(t, "Test prompt", result.Messages[0].Content)
			assert.Equal(t, tt.systemPrompt, result.System)
		})
	}
}

func TestAnthropicClient_parseAnthropicResponse_ConcatenatesTextBlocks(t *testing.T) {
	client, _ := setupTestAnthropicClient("")

	responseBody, _ := json.Marshal(AnthropicResponse{
		ID: "msg_123",
		Content: []AnthropicContent{
			{Type: "text", Text: "first "},
			{Type: "tool_use"},
			{Type: "text", Text: "second"},
		},
		Usage: AnthropicUsage{InputTokens: 100, OutputTokens: 50},
	})
	httpResp := &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(responseBody)),
	}

	responseText, anthropicResp, err := client.parseAnthropicResponse(httpResp)

	require.NoError(t, err)
	assert.Equal(t, "first second", responseText)
	assert.Equal(t, 100, anthropicResp.Usage.InputTokens)
}

func TestAnthropicClient_parseAnthropicResponse_Failures(t *testing.T) {
	client, _ := setupTestAnthropicClient("")

	tests := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{"empty content", http.StatusOK, `{"content":[]}`, "empty response content"},
		{"empty text", http.StatusOK, `{"content":[{"type":"text","text":""}]}`, "empty response text"},
		{"invalid json", http.StatusOK, "invalid json", "failed to parse response"},
		{"unknown error body", http.StatusForbidden, "nope", "unknown API error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpResp := &http.Response{
				StatusCode: tt.status,
				Body:       io.NopCloser(strings.NewReader(tt.body)),
			}

			responseText, anthropicResp, err := client.parseAnthropicResponse(httpResp)

			assert.Error(t, err)
			assert.Empty(t, responseText)
			assert.Nil(t, anthropicResp)
			assert.Contains(t, err.Error(), tt.expected)
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	wait, ok := parseRetryAfter("30")
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, wait)

	_, ok = parseRetryAfter("")
	assert.False(t, ok)

	_, ok = parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT")
	assert.False(t, ok)
}

func TestNewLLMClient(t *testing.T) {
	client, err := NewLLMClient(&config.Config{LLMProvider: "anthropic", AnthropicAPIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", client.Provider())

	client, err = NewLLMClient(&config.Config{LLMProvider: "openai", OpenAIAPIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", client.Provider())

	_, err = NewLLMClient(&config.Config{LLMProvider: "openai"})
	assert.Error(t, err)

	_, err = NewLLMClient(&config.Config{LLMProvider: "mystery"})
	assert.ErrorContains(t, err, "unknown LLM provider")
}
