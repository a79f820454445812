package evidence

import (
	"context"
	"strings"

	"claimcheck/internal/models"
)

// SerperSource turns Serper snippets into evidence documents
type SerperSource struct {
	client   ClaimSearcher
	maxChars int
}

// NewSerperSource creates a Serper-backed evidence source
func NewSerperSource(client ClaimSearcher, maxChars int) *SerperSource {
	return &SerperSource{client: client, maxChars: maxChars}
}

// Name returns the provider name
func (s *SerperSource) Name() string {
	return "serper"
}

// Search returns one document per snippet that carries a URL
func (s *SerperSource) Search(ctx context.Context, claim string) ([]models.EvidenceDocument, error) {
	searchContext, err := s.client.SearchForClaim(ctx, agentName, claim)
	if err != nil {
		return nil, err
	}

	docs := make([]models.EvidenceDocument, 0, len(searchContext.Snippets))
	for _, snippet := range searchContext.Snippets {
		if strings.TrimSpace(snippet.URL) == "" {
			continue
		}
		text := snippet.Snippet
		if snippet.Title != "" {
			text = snippet.Title + ": " + snippet.Snippet
		}
		docs = append(docs, models.EvidenceDocument{
			URL:  snippet.URL,
			Text: truncateText(text, s.maxChars),
		})
	}
	return docs, nil
}
