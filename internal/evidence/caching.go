package evidence

import (
	"context"
	"encoding/json"
	"time"

	"claimcheck/internal/cache"
	"claimcheck/internal/logger"
	"claimcheck/internal/models"

	"github.com/sirupsen/logrus"
)

// CachingSource memoizes non-empty search results per claim
type CachingSource struct {
	next   Source
	cache  cache.Cache
	ttl    time.Duration
	logger *logrus.Logger
}

// NewCachingSource wraps next with a lookup cache
func NewCachingSource(next Source, c cache.Cache, ttl time.Duration) *CachingSource {
	return &CachingSource{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: logger.Log,
	}
}

// Name returns the wrapped provider name
func (s *CachingSource) Name() string {
	return s.next.Name()
}

// Search serves from cache when possible. Empty results and errors are never cached.
func (s *CachingSource) Search(ctx context.Context, claim string) ([]models.EvidenceDocument, error) {
	key := cache.Key(s.next.Name(), claim)
	fields := map[string]interface{}{
		"correlation_id": logger.CorrelationID(ctx),
		"provider":       s.next.Name(),
	}

	if data, found := s.cache.Get(key); found {
		var docs []models.EvidenceDocument
		if err := json.Unmarshal(data, &docs); err == nil && len(docs) > 0 {
			s.logger.WithFields(fields).Debug("Evidence cache hit")
			return docs, nil
		}
		_ = s.cache.Delete(key)
	}

	docs, err := s.next.Search(ctx, claim)
	if err != nil || len(docs) == 0 {
		return docs, err
	}

	data, err := json.Marshal(docs)
	if err != nil {
		return docs, nil
	}
	if err := s.cache.Set(key, data, s.ttl); err != nil {
		s.logger.WithFields(fields).WithError(err).Warn("Failed to cache evidence")
	}
	return docs, nil
}
