package evidence

import (
	"context"
	"time"

	"claimcheck/internal/logger"
	"claimcheck/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// PageTextEnricher replaces short snippets with the text of the page they came from
type PageTextEnricher struct {
	next        Source
	fetcher     PageFetcher
	minChars    int
	maxChars    int
	parallelism int
	logger      *logrus.Logger
}

// NewPageTextEnricher wraps next. Documents shorter than minChars are fetched.
func NewPageTextEnricher(next Source, fetcher PageFetcher, minChars, maxChars int) *PageTextEnricher {
	return &PageTextEnricher{
		next:        next,
		fetcher:     fetcher,
		minChars:    minChars,
		maxChars:    maxChars,
		parallelism: 4,
		logger:      logger.Log,
	}
}

// Name returns the wrapped provider name
func (e *PageTextEnricher) Name() string {
	return e.next.Name()
}

// Search enriches the wrapped source's results. Fetch failures keep the original document.
func (e *PageTextEnricher) Search(ctx context.Context, claim string) ([]models.EvidenceDocument, error) {
	docs, err := e.next.Search(ctx, claim)
	if err != nil || len(docs) == 0 {
		return docs, err
	}

	start := time.Now()
	enriched := make([]models.EvidenceDocument, len(docs))
	copy(enriched, docs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i := range enriched {
		if len(enriched[i].Text) >= e.minChars {
			continue
		}
		g.Go(func() error {
			text, err := e.fetcher.FetchText(gctx, enriched[i].URL)
			if err != nil {
				e.logger.WithFields(map[string]interface{}{
					"correlation_id": logger.CorrelationID(ctx),
					"url":            enriched[i].URL,
				}).WithError(err).Debug("Page text fetch failed, keeping snippet")
				return nil
			}
			text = truncateText(text, e.maxChars)
			if len(text) > len(enriched[i].Text) {
				enriched[i].Text = text
			}
			return nil
		})
	}
	_ = g.Wait()

	e.logger.WithFields(map[string]interface{}{
		"correlation_id": logger.CorrelationID(ctx),
		"documents":      len(enriched),
		"duration_ms":    time.Since(start).Milliseconds(),
	}).Debug("Evidence documents enriched")

	return enriched, nil
}
