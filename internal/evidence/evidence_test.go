package evidence

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"claimcheck/internal/cache"
	"claimcheck/internal/clients"
	"claimcheck/internal/config"
	"claimcheck/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockClaimSearcher struct {
	mock.Mock
}

func (m *MockClaimSearcher) SearchForClaim(ctx context.Context, agentName, claim string) (*clients.SearchContext, error) {
	args := m.Called(ctx, agentName, claim)
	if sc := args.Get(0); sc != nil {
		return sc.(*clients.SearchContext), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockContentSearcher struct {
	mock.Mock
}

func (m *MockContentSearcher) SearchAndContents(ctx context.Context, agentName, query string) (*clients.ExaSearchResponse, error) {
	args := m.Called(ctx, agentName, query)
	if resp := args.Get(0); resp != nil {
		return resp.(*clients.ExaSearchResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockPageFetcher struct {
	mock.Mock
}

func (m *MockPageFetcher) FetchText(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

// countingSource returns fixed documents and counts calls
type countingSource struct {
	docs  []models.EvidenceDocument
	err   error
	calls atomic.Int32
}

func (s *countingSource) Name() string { return "fake" }

func (s *countingSource) Search(ctx context.Context, claim string) ([]models.EvidenceDocument, error) {
	s.calls.Add(1)
	return s.docs, s.err
}

func TestSerperSource_Search(t *testing.T) {
	client := &MockClaimSearcher{}
	source := NewSerperSource(client, 20)

	client.On("SearchForClaim", mock.Anything, "evidence_search", "tower height").Return(&clients.SearchContext{
		Snippets: []clients.SearchSnippet{
			{Title: "Tower", Snippet: "330 metres", URL: "https://a.example"},
			{Title: "", Snippet: "no link", URL: ""},
			{Title: "", Snippet: "A very long snippet that exceeds the limit", URL: "https://b.example"},
		},
	}, nil)

	docs, err := source.Search(context.Background(), "tower height")

	require.NoError(t, err)
	assert.Equal(t, []models.EvidenceDocument{
		{URL: "https://a.example", Text: "Tower: 330 metres"},
		{URL: "https://b.example", Text: "A very long snippet "[:20]},
	}, docs)
	assert.Equal(t, "serper", source.Name())
	client.AssertExpectations(t)
}

func TestSerperSource_Error(t *testing.T) {
	client := &MockClaimSearcher{}
	source := NewSerperSource(client, 0)
	apiErr := clients.NewAPIError("serper", 500, "boom", nil)

	client.On("SearchForClaim", mock.Anything, mock.Anything, mock.Anything).Return(nil, apiErr)

	docs, err := source.Search(context.Background(), "claim")

	assert.Nil(t, docs)
	assert.ErrorIs(t, err, apiErr)
}

func TestExaSource_Search(t *testing.T) {
	client := &MockContentSearcher{}
	source := NewExaSource(client, 5)

	client.On("SearchAndContents", mock.Anything, "evidence_search", "claim text").Return(&clients.ExaSearchResponse{
		Results: []clients.ExaResult{
			{URL: "https://a.example", Text: "  abcdefgh  "},
			{URL: " ", Text: "skipped"},
		},
	}, nil)

	docs, err := source.Search(context.Background(), "claim text")

	require.NoError(t, err)
	assert.Equal(t, []models.EvidenceDocument{{URL: "https://a.example", Text: "abcde"}}, docs)
	assert.Equal(t, "exa", source.Name())
}

func TestExaSource_EmptyResultIsNotAnError(t *testing.T) {
	client := &MockContentSearcher{}
	source := NewExaSource(client, 0)

	client.On("SearchAndContents", mock.Anything, mock.Anything, mock.Anything).Return(&clients.ExaSearchResponse{}, nil)

	docs, err := source.Search(context.Background(), "claim")

	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestTruncateText_RuneBoundary(t *testing.T) {
	assert.Equal(t, "caf", truncateText("café au lait", 4))
	assert.Equal(t, "café", truncateText("café au lait", 5))
	assert.Equal(t, "short", truncateText(" short ", 0))
}

func TestPageTextEnricher_ReplacesShortSnippets(t *testing.T) {
	next := &countingSource{docs: []models.EvidenceDocument{
		{URL: "https://short.example", Text: "tiny"},
		{URL: "https://long.example", Text: strings.Repeat("x", 50)},
		{URL: "https://broken.example", Text: "also tiny"},
	}}
	fetcher := &MockPageFetcher{}
	fetcher.On("FetchText", mock.Anything, "https://short.example").Return("the full page text of the short example", nil)
	fetcher.On("FetchText", mock.Anything, "https://broken.example").Return("", errors.New("timeout"))

	enricher := NewPageTextEnricher(next, fetcher, 20, 1000)
	docs, err := enricher.Search(context.Background(), "claim")

	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "the full page text of the short example", docs[0].Text)
	assert.Equal(t, strings.Repeat("x", 50), docs[1].Text)
	assert.Equal(t, "also tiny", docs[2].Text)
	assert.Equal(t, "tiny", next.docs[0].Text, "wrapped results must not be mutated")
	fetcher.AssertNotCalled(t, "FetchText", mock.Anything, "https://long.example")
}

func TestPageTextEnricher_PassesThroughErrors(t *testing.T) {
	next := &countingSource{err: errors.New("search down")}
	enricher := NewPageTextEnricher(next, &MockPageFetcher{}, 20, 1000)

	_, err := enricher.Search(context.Background(), "claim")

	assert.EqualError(t, err, "search down")
	assert.Equal(t, "fake", enricher.Name())
}

func TestCachingSource_CachesNonEmptyResults(t *testing.T) {
	next := &countingSource{docs: []models.EvidenceDocument{{URL: "https://a.example", Text: "a"}}}
	source := NewCachingSource(next, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)

	first, err := source.Search(context.Background(), "The tower is tall")
	require.NoError(t, err)
	second, err := source.Search(context.Background(), "the tower  is tall")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestCachingSource_NeverCachesEmptyOrErrors(t *testing.T) {
	empty := &countingSource{}
	source := NewCachingSource(empty, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)

	_, _ = source.Search(context.Background(), "claim")
	_, _ = source.Search(context.Background(), "claim")
	assert.Equal(t, int32(2), empty.calls.Load())

	failing := &countingSource{err: errors.New("down")}
	source = NewCachingSource(failing, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)

	_, err := source.Search(context.Background(), "claim")
	assert.Error(t, err)
	_, err = source.Search(context.Background(), "claim")
	assert.Error(t, err)
	assert.Equal(t, int32(2), failing.calls.Load())
}

func TestCachingSource_DropsCorruptEntries(t *testing.T) {
	memory := cache.NewMemoryCache(time.Minute, time.Minute)
	next := &countingSource{docs: []models.EvidenceDocument{{URL: "https://a.example", Text: "a"}}}
	source := NewCachingSource(next, memory, time.Minute)

	require.NoError(t, memory.Set(cache.Key("fake", "claim"), []byte("not json"), 0))

	docs, err := source.Search(context.Background(), "claim")

	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestNewSource(t *testing.T) {
	cfg := &config.Config{EvidenceProvider: "serper", EvidenceMaxChars: 100, CacheTTL: time.Minute}

	source, err := NewSource(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &SerperSource{}, source)

	cfg.EvidenceProvider = "exa"
	cfg.FetchPageText = true
	source, err = NewSource(cfg, cache.NewMemoryCache(time.Minute, time.Minute))
	require.NoError(t, err)
	require.IsType(t, &CachingSource{}, source)
	assert.IsType(t, &PageTextEnricher{}, source.(*CachingSource).next)
	assert.Equal(t, "exa", source.Name())

	cfg.EvidenceProvider = "bing"
	_, err = NewSource(cfg, nil)
	assert.Error(t, err)
}

func TestNewCache_MemoryOnlyWithoutDatabase(t *testing.T) {
	c, closeFn, err := NewCache(&config.Config{CacheTTL: time.Minute})

	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryCache{}, c)
	assert.NoError(t, closeFn())
}

func TestNewCache_LayeredWithDatabase(t *testing.T) {
	c, closeFn, err := NewCache(&config.Config{
		CacheTTL:         time.Minute,
		CacheDatabaseURL: "sqlite://" + t.TempDir() + "/cache.db",
		EvidenceProvider: "exa",
	})

	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &cache.LayeredCache{}, c)

	require.NoError(t, c.Set("k", []byte(`[]`), 0))
	_, found := c.Get("k")
	assert.True(t, found)
}
