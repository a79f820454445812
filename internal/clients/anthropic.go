package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"claimcheck/internal/config"
	"claimcheck/internal/logger"

	"github.com/sirupsen/logrus"
)

const anthropicService = "anthropic"

// AnthropicClient handles communication with the Anthropic Messages API
type AnthropicClient struct {
	apiKey     string
	model      string
	baseURL    string
	maxRetries int
	backoff    time.Duration
	httpClient *http.Client
	logger     *logrus.Logger
}

// AnthropicRequest represents a request to the Anthropic API
type AnthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []AnthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
}

// AnthropicMessage represents a message in the conversation
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicResponse represents a response from the Anthropic API
type AnthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []AnthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
	Usage      AnthropicUsage     `json:"usage"`
}

// AnthropicContent represents content in the response
type AnthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// AnthropicUsage represents token usage information
type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// AnthropicError represents an error response from the API
type AnthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *AnthropicError) Error() string {
	return fmt.Sprintf("anthropic API error (%s): %s", e.Type, e.Message)
}

// anthropicErrorEnvelope matches the {"type":"error","error":{...}} body the API returns
type anthropicErrorEnvelope struct {
	Error *AnthropicError `json:"error"`
}

// NewAnthropicClient creates a new Anthropic API client
func NewAnthropicClient(cfg *config.Config) *AnthropicClient {
	return &AnthropicClient{
		apiKey:     cfg.AnthropicAPIKey,
		model:      cfg.ClaudeModel,
		baseURL:    "https://api.anthropic.com/v1/messages",
		maxRetries: 3,
		backoff:    time.Second,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // 2 minute timeout for AI calls
		},
		logger: logger.Log,
	}
}

// Provider returns the provider name
func (c *AnthropicClient) Provider() string {
	return anthropicService
}

// Complete sends a single-turn prompt to Claude and returns the text of the reply
func (c *AnthropicClient) Complete(ctx context.Context, agentName, prompt, systemPrompt string) (string, error) {
	start := time.Now()
	correlationID := logger.CorrelationID(ctx)

	request := c.buildAnthropicRequest(prompt, systemPrompt)

	c.logger.WithFields(map[string]interface{}{
		"agent":          agentName,
		"correlation_id": correlationID,
		"model":          c.model,
		"prompt_length":  len(prompt),
		"has_system":     systemPrompt != "",
	}).Info("Making Anthropic API call")

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := c.prepareHTTPRequest(ctx, requestBody)
	if err != nil {
		return "", err
	}

	response, err := c.makeRequestWithRetry(ctx, httpReq, agentName, c.maxRetries)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	responseText, anthropicResp, err := c.parseAnthropicResponse(response)
	if err != nil {
		return "", err
	}

	duration := time.Since(start)
	c.logger.WithFields(map[string]interface{}{
		"agent":           agentName,
		"correlation_id":  correlationID,
		"duration_ms":     duration.Milliseconds(),
		"response_length": len(responseText),
		"input_tokens":    anthropicResp.Usage.InputTokens,
		"output_tokens":   anthropicResp.Usage.OutputTokens,
	}).Info("Anthropic API response received")

	return responseText, nil
}

// makeRequestWithRetry makes an HTTP request with retry logic for retryable errors
func (c *AnthropicClient) makeRequestWithRetry(ctx context.Context, req *http.Request, agentName string, maxRetries int) (*http.Response, error) {
	var requestBody []byte
	if req.Body != nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body for retry: %w", err)
		}
		req.Body.Close()
		requestBody = bodyBytes
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if requestBody != nil {
			req.Body = io.NopCloser(bytes.NewReader(requestBody))
		}

		response, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)

			// Don't retry on context cancellation or timeout
			if ctx.Err() != nil {
				return nil, lastErr
			}

			if attempt < maxRetries {
				waitTime := c.backoffFor(attempt)
				c.logger.WithFields(map[string]interface{}{
					"agent":        agentName,
					"attempt":      attempt + 1,
					"max_attempts": maxRetries + 1,
					"wait_seconds": waitTime.Seconds(),
				}).Warn("Request failed, retrying")

				if err := sleepContext(ctx, waitTime); err != nil {
					return nil, err
				}
			}
			continue
		}

		if response.StatusCode >= 500 || response.StatusCode == http.StatusTooManyRequests {
			response.Body.Close()

			retryAfter, hasRetryAfter := parseRetryAfter(response.Header.Get("Retry-After"))
			if response.StatusCode == http.StatusTooManyRequests {
				lastErr = NewRateLimitError(anthropicService, int(retryAfter.Seconds()),
					NewAPIError(anthropicService, response.StatusCode, "rate limited after retries", nil))
			} else {
				lastErr = NewAPIError(anthropicService, response.StatusCode, "server error after retries", nil)
			}

			if attempt < maxRetries {
				waitTime := c.backoffFor(attempt)
				if response.StatusCode == http.StatusTooManyRequests && hasRetryAfter {
					waitTime = retryAfter
				}

				c.logger.WithFields(map[string]interface{}{
					"agent":        agentName,
					"status_code":  response.StatusCode,
					"attempt":      attempt + 1,
					"max_attempts": maxRetries + 1,
					"wait_seconds": waitTime.Seconds(),
				}).Warn("Received retryable status code, retrying")

				if err := sleepContext(ctx, waitTime); err != nil {
					return nil, err
				}
			}
			continue
		}

		// Success or non-retryable error
		return response, nil
	}

	return nil, lastErr
}

func (c *AnthropicClient) backoffFor(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * c.backoff
}

// buildAnthropicRequest constructs the request payload for the Anthropic API
func (c *AnthropicClient) buildAnthropicRequest(prompt, systemPrompt string) AnthropicRequest {
	request := AnthropicRequest{
		Model:       c.model,
		MaxTokens:   4000,
		Temperature: 0.1,
		Messages: []AnthropicMessage{
			{
				Role:    "user",
				Content: prompt,
			},
		},
	}

	if systemPrompt != "" {
		request.System = systemPrompt
	}

	return request
}

// prepareHTTPRequest creates and configures the HTTP request
func (c *AnthropicClient) prepareHTTPRequest(ctx context.Context, requestBody []byte) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	return httpReq, nil
}

// parseAnthropicResponse parses the response from the Anthropic API
func (c *AnthropicClient) parseAnthropicResponse(response *http.Response) (string, *AnthropicResponse, error) {
	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if response.StatusCode != http.StatusOK {
		var envelope anthropicErrorEnvelope
		if json.Unmarshal(responseBody, &envelope) == nil && envelope.Error != nil {
			return "", nil, NewAPIError(anthropicService, response.StatusCode, envelope.Error.Message, envelope.Error)
		}
		return "", nil, NewAPIError(anthropicService, response.StatusCode, "unknown API error", nil)
	}

	var anthropicResp AnthropicResponse
	if err := json.Unmarshal(responseBody, &anthropicResp); err != nil {
		return "", nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(anthropicResp.Content) == 0 {
		return "", nil, fmt.Errorf("empty response content")
	}

	// Concatenate every text block; tool-free replies normally carry exactly one
	var responseText string
	for _, block := range anthropicResp.Content {
		if block.Type == "" || block.Type == "text" {
			responseText += block.Text
		}
	}
	if responseText == "" {
		return "", nil, fmt.Errorf("empty response text")
	}

	return responseText, &anthropicResp, nil
}

// parseRetryAfter reads a Retry-After header expressed in seconds
func parseRetryAfter(header string) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

func sleepContext(ctx context.Context, wait time.Duration) error {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
