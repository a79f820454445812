package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"claimcheck/internal/config"
	"claimcheck/internal/logger"

	"github.com/sirupsen/logrus"
)

const serperService = "serper"

// SerperClient handles communication with the Serper API for web search
type SerperClient struct {
	apiKey     string
	baseURL    string
	numResults int
	httpClient *http.Client
	logger     *logrus.Logger
}

// SerperRequest represents a request to the Serper API
type SerperRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num"`
}

// SerperResponse represents a response from the Serper API
type SerperResponse struct {
	Organic        []SerperResult        `json:"organic"`
	AnswerBox      *SerperAnswerBox      `json:"answerBox,omitempty"`
	KnowledgeGraph *SerperKnowledgeGraph `json:"knowledgeGraph,omitempty"`
}

// SerperResult represents a single search result
type SerperResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// SerperAnswerBox represents an answer box result
type SerperAnswerBox struct {
	Answer  string `json:"answer"`
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// SerperKnowledgeGraph represents a knowledge graph result
type SerperKnowledgeGraph struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Website     string `json:"website"`
}

// SearchContext is the ranked snippet list gathered for one claim
type SearchContext struct {
	OriginalClaim string          `json:"original_claim"`
	SearchQuery   string          `json:"search_query"`
	Snippets      []SearchSnippet `json:"snippets"`
	TotalResults  int             `json:"total_results"`
}

// SearchSnippet represents a formatted search result snippet
type SearchSnippet struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// SerperError represents an error response from the Serper API
type SerperError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *SerperError) Error() string {
	return fmt.Sprintf("serper API error (%s): %s", e.Type, e.Message)
}

// NewSerperClient creates a new Serper API client
func NewSerperClient(cfg *config.Config) *SerperClient {
	numResults := cfg.EvidenceResults
	if numResults <= 0 {
		numResults = 5
	}
	return &SerperClient{
		apiKey:     cfg.SerperAPIKey,
		baseURL:    "https://google.serper.dev/search",
		numResults: numResults,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.Log,
	}
}

// Search performs a web search using Serper API
func (c *SerperClient) Search(ctx context.Context, agentName, query string, numResults int) (*SerperResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("Serper API key not configured")
	}

	start := time.Now()
	correlationID := logger.CorrelationID(ctx)

	c.logger.WithFields(map[string]interface{}{
		"agent":          agentName,
		"correlation_id": correlationID,
		"query":          query,
		"num_results":    numResults,
	}).Info("Performing Serper web search")

	requestBody, err := json.Marshal(SerperRequest{Query: query, Num: numResults})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-KEY", c.apiKey)

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
		var apiErr SerperError
		if json.Unmarshal(responseBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, NewAPIError(serperService, resp.StatusCode, apiErr.Message, &apiErr)
		}
		return nil, NewAPIError(serperService, resp.StatusCode, "unknown API error", nil)
	}

	var serperResp SerperResponse
	if err := json.Unmarshal(responseBody, &serperResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	duration := time.Since(start)
	c.logger.WithFields(map[string]interface{}{
		"agent":               agentName,
		"correlation_id":      correlationID,
		"duration_ms":         duration.Milliseconds(),
		"results_count":       len(serperResp.Organic),
		"has_answer_box":      serperResp.AnswerBox != nil,
		"has_knowledge_graph": serperResp.KnowledgeGraph != nil,
	}).Info("Serper search completed")

	return &serperResp, nil
}

// SearchForClaim performs a targeted search for a specific factual claim
func (c *SerperClient) SearchForClaim(ctx context.Context, agentName, claim string) (*SearchContext, error) {
	searchQuery := optimizeClaimQuery(claim)

	searchResults, err := c.Search(ctx, agentName, searchQuery, c.numResults)
	if err != nil {
		return nil, err
	}

	searchContext := extractSearchContext(searchResults)
	searchContext.OriginalClaim = claim
	searchContext.SearchQuery = searchQuery

	return searchContext, nil
}

// extractSearchContext ranks answer box, then knowledge graph, then organic results
func extractSearchContext(results *SerperResponse) *SearchContext {
	searchContext := &SearchContext{
		Snippets:     []SearchSnippet{},
		TotalResults: len(results.Organic),
	}

	if results.AnswerBox != nil {
		snippet := results.AnswerBox.Snippet
		if snippet == "" {
			snippet = results.AnswerBox.Answer
		}
		if snippet != "" {
			searchContext.Snippets = append(searchContext.Snippets, SearchSnippet{
				Title:   results.AnswerBox.Title,
				Snippet: snippet,
				URL:     results.AnswerBox.Link,
			})
		}
	}

	if results.KnowledgeGraph != nil && results.KnowledgeGraph.Description != "" {
		searchContext.Snippets = append(searchContext.Snippets, SearchSnippet{
			Title:   fmt.Sprintf("Knowledge Graph: %s", results.KnowledgeGraph.Title),
			Snippet: results.KnowledgeGraph.Description,
			URL:     results.KnowledgeGraph.Website,
		})
	}

	for _, result := range results.Organic {
		if result.Snippet != "" {
			searchContext.Snippets = append(searchContext.Snippets, SearchSnippet{
				Title:   result.Title,
				Snippet: result.Snippet,
				URL:     result.Link,
			})
		}
	}

	return searchContext
}

// optimizeClaimQuery optimizes a factual claim for web search
func optimizeClaimQuery(claim string) string {
	query := strings.TrimSpace(claim)

	// Remove quotation marks that might be too restrictive
	query = strings.ReplaceAll(query, "\"", "")

	// Serper works better with shorter queries
	words := strings.Fields(query)
	if len(words) > 10 {
		query = strings.Join(words[:10], " ")
	}

	return query
}
