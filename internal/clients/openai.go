package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"claimcheck/internal/config"
	"claimcheck/internal/logger"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const openAIService = "openai"

// OpenAIClient talks to the OpenAI chat completions API
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *logrus.Logger
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(cfg *config.Config) (*OpenAIClient, error) {
	return newOpenAIClient(cfg, "")
}

func newOpenAIClient(cfg *config.Config, baseURL string) (*OpenAIClient, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	model := cfg.OpenAIModel
	if model == "" {
		model = openai.GPT4o
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: 120 * time.Second,
		logger:  logger.Log,
	}, nil
}

// Provider returns the provider name
func (c *OpenAIClient) Provider() string {
	return openAIService
}

// Complete sends a system + user message pair and returns the assistant reply
func (c *OpenAIClient) Complete(ctx context.Context, agentName, prompt, systemPrompt string) (string, error) {
	start := time.Now()
	correlationID := logger.CorrelationID(ctx)

	c.logger.WithFields(map[string]interface{}{
		"agent":          agentName,
		"correlation_id": correlationID,
		"model":          c.model,
		"prompt_length":  len(prompt),
		"has_system":     systemPrompt != "",
	}).Info("Making OpenAI API call")

	ctxWithTimeout, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   4000,
		Temperature: 0.1,
	})
	if err != nil {
		return "", wrapOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	responseText := strings.TrimSpace(resp.Choices[0].Message.Content)
	if responseText == "" {
		return "", fmt.Errorf("empty response text")
	}

	duration := time.Since(start)
	c.logger.WithFields(map[string]interface{}{
		"agent":           agentName,
		"correlation_id":  correlationID,
		"duration_ms":     duration.Milliseconds(),
		"response_length": len(responseText),
		"input_tokens":    resp.Usage.PromptTokens,
		"output_tokens":   resp.Usage.CompletionTokens,
	}).Info("OpenAI API response received")

	return responseText, nil
}

// wrapOpenAIError maps go-openai errors onto the shared API error types
func wrapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		wrapped := NewAPIError(openAIService, apiErr.HTTPStatusCode, apiErr.Message, err)
		if apiErr.HTTPStatusCode == 429 {
			return NewRateLimitError(openAIService, 0, wrapped)
		}
		return wrapped
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewAPIError(openAIService, reqErr.HTTPStatusCode, "request failed", err)
	}

	return fmt.Errorf("OpenAI API error: %w", err)
}
