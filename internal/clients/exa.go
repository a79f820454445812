package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"claimcheck/internal/config"
	"claimcheck/internal/logger"

	"github.com/sirupsen/logrus"
)

const exaService = "exa"

// ExaClient handles communication with the Exa search API
type ExaClient struct {
	apiKey     string
	baseURL    string
	numResults int
	maxChars   int
	httpClient *http.Client
	logger     *logrus.Logger
}

// ExaSearchRequest represents a request to the Exa search endpoint
type ExaSearchRequest struct {
	Query      string      `json:"query"`
	Type       string      `json:"type"`
	NumResults int         `json:"numResults"`
	Contents   ExaContents `json:"contents"`
}

// ExaContents selects which page contents Exa returns with each result
type ExaContents struct {
	Text ExaTextOptions `json:"text"`
}

// ExaTextOptions bounds the returned page text
type ExaTextOptions struct {
	MaxCharacters int `json:"maxCharacters,omitempty"`
}

// ExaSearchResponse represents a response from the Exa search endpoint
type ExaSearchResponse struct {
	RequestID string      `json:"requestId"`
	Results   []ExaResult `json:"results"`
}

// ExaResult is a single search hit with its page text
type ExaResult struct {
	ID            string  `json:"id"`
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	Text          string  `json:"text"`
	PublishedDate string  `json:"publishedDate,omitempty"`
	Score         float64 `json:"score,omitempty"`
}

type exaErrorBody struct {
	Error string `json:"error"`
}

// NewExaClient creates a new Exa API client
func NewExaClient(cfg *config.Config) *ExaClient {
	numResults := cfg.EvidenceResults
	if numResults <= 0 {
		numResults = 10
	}
	return &ExaClient{
		apiKey:     cfg.ExaAPIKey,
		baseURL:    "https://api.exa.ai/search",
		numResults: numResults,
		maxChars:   cfg.EvidenceMaxChars,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.Log,
	}
}

// SearchAndContents runs a search and returns results with their page text
func (c *ExaClient) SearchAndContents(ctx context.Context, agentName, query string) (*ExaSearchResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("Exa API key not configured")
	}

	start := time.Now()
	correlationID := logger.CorrelationID(ctx)

	c.logger.WithFields(map[string]interface{}{
		"agent":          agentName,
		"correlation_id": correlationID,
		"query":          logger.Truncate(query, 120),
		"num_results":    c.numResults,
	}).Info("Performing Exa search")

	requestBody, err := json.Marshal(ExaSearchRequest{
		Query:      query,
		Type:       "auto",
		NumResults: c.numResults,
		Contents:   ExaContents{Text: ExaTextOptions{MaxCharacters: c.maxChars}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		message := "unknown API error"
		var body exaErrorBody
		if json.Unmarshal(responseBody, &body) == nil && body.Error != "" {
			message = body.Error
		}
		apiErr := NewAPIError(exaService, resp.StatusCode, message, nil)
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
			return nil, NewRateLimitError(exaService, int(retryAfter.Seconds()), apiErr)
		}
		return nil, apiErr
	}

	var exaResp ExaSearchResponse
	if err := json.Unmarshal(responseBody, &exaResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"agent":          agentName,
		"correlation_id": correlationID,
		"duration_ms":    time.Since(start).Milliseconds(),
		"results_count":  len(exaResp.Results),
	}).Info("Exa search completed")

	return &exaResp, nil
}
