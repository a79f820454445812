package evidence

import (
	"fmt"
	"time"

	"claimcheck/internal/cache"
	"claimcheck/internal/clients"
	"claimcheck/internal/config"
)

// minSnippetChars is the document length below which page text is fetched
const minSnippetChars = 400

// NewSource builds the configured evidence source. c may be nil to disable caching.
func NewSource(cfg *config.Config, c cache.Cache) (Source, error) {
	var source Source
	switch cfg.EvidenceProvider {
	case "serper":
		source = NewSerperSource(clients.NewSerperClient(cfg), cfg.EvidenceMaxChars)
	case "exa":
		source = NewExaSource(clients.NewExaClient(cfg), cfg.EvidenceMaxChars)
	default:
		return nil, fmt.Errorf("unsupported evidence provider: %s", cfg.EvidenceProvider)
	}

	if cfg.FetchPageText {
		fetcher := clients.NewPageFetcher(cfg.FetchUserAgent, 15*time.Second, 1)
		source = NewPageTextEnricher(source, fetcher, minSnippetChars, cfg.EvidenceMaxChars)
	}

	if c != nil {
		source = NewCachingSource(source, c, cfg.CacheTTL)
	}

	return source, nil
}

// NewCache builds the evidence cache: memory only, or memory over a SQL store
// when CACHE_DATABASE_URL is set. The returned close func releases the database.
func NewCache(cfg *config.Config) (cache.Cache, func() error, error) {
	memory := cache.NewMemoryCache(cfg.CacheTTL, 10*time.Minute)
	if cfg.CacheDatabaseURL == "" {
		return memory, func() error { return nil }, nil
	}

	db, err := cache.OpenDatabase(cfg.CacheDatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get cache database handle: %w", err)
	}

	store := cache.NewStoreCache(db, cfg.EvidenceProvider, cfg.CacheTTL)
	return cache.NewLayeredCache(memory, store), sqlDB.Close, nil
}
