package evidence

import (
	"context"
	"strings"

	"claimcheck/internal/clients"
	"claimcheck/internal/models"
)

const agentName = "evidence_search"

// Source looks up evidence documents for one claim. An empty result is not an error.
type Source interface {
	Search(ctx context.Context, claim string) ([]models.EvidenceDocument, error)
	Name() string
}

// ClaimSearcher is the web search used by SerperSource
type ClaimSearcher interface {
	SearchForClaim(ctx context.Context, agentName, claim string) (*clients.SearchContext, error)
}

// ContentSearcher is the search-with-contents API used by ExaSource
type ContentSearcher interface {
	SearchAndContents(ctx context.Context, agentName, query string) (*clients.ExaSearchResponse, error)
}

// PageFetcher returns the visible text of a page
type PageFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

var (
	_ ClaimSearcher   = (*clients.SerperClient)(nil)
	_ ContentSearcher = (*clients.ExaClient)(nil)
	_ PageFetcher     = (*clients.PageFetcher)(nil)
)

// truncateText cuts text to maxChars on a rune boundary. maxChars <= 0 disables the limit.
func truncateText(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	cut := maxChars
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
