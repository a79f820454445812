package evidence

import (
	"context"
	"strings"

	"claimcheck/internal/models"
)

// ExaSource returns full page text for each Exa result
type ExaSource struct {
	client   ContentSearcher
	maxChars int
}

// NewExaSource creates an Exa-backed evidence source
func NewExaSource(client ContentSearcher, maxChars int) *ExaSource {
	return &ExaSource{client: client, maxChars: maxChars}
}

// Name returns the provider name
func (s *ExaSource) Name() string {
	return "exa"
}

// Search queries Exa with the claim text as-is
func (s *ExaSource) Search(ctx context.Context, claim string) ([]models.EvidenceDocument, error) {
	response, err := s.client.SearchAndContents(ctx, agentName, claim)
	if err != nil {
		return nil, err
	}

	docs := make([]models.EvidenceDocument, 0, len(response.Results))
	for _, result := range response.Results {
		if strings.TrimSpace(result.URL) == "" {
			continue
		}
		docs = append(docs, models.EvidenceDocument{
			URL:  result.URL,
			Text: truncateText(result.Text, s.maxChars),
		})
	}
	return docs, nil
}
