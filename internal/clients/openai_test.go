package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"claimcheck/internal/config"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestOpenAIClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := newOpenAIClient(&config.Config{
		OpenAIAPIKey: "test-openai-key",
		OpenAIModel:  "gpt-4o-mini",
	}, server.URL+"/v1")
	require.NoError(t, err)

	log, _ := test.NewNullLogger()
	client.logger = log
	return client
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(&config.Config{})
	assert.ErrorContains(t, err, "OpenAI API key is required")
}

func TestOpenAIClient_Complete_Success(t *testing.T) {
	client := setupTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-openai-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])
		messages := body["messages"].([]interface{})
		assert.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  verdict  "}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
		}`))
	})

	result, err := client.Complete(context.Background(), "verifier", "prompt", "system")

	require.NoError(t, err)
	assert.Equal(t, "verdict", result)
}

func TestOpenAIClient_Complete_APIError(t *testing.T) {
	client := setupTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit_error"}}`))
	})

	_, err := client.Complete(context.Background(), "verifier", "prompt", "")

	require.Error(t, err)
	assert.True(t, IsRateLimitError(err))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestOpenAIClient_Complete_NoChoices(t *testing.T) {
	client := setupTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "chatcmpl-1", "choices": []}`))
	})

	_, err := client.Complete(context.Background(), "verifier", "prompt", "")

	assert.ErrorContains(t, err, "no response from OpenAI")
}
