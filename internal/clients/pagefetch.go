package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"claimcheck/internal/logger"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

// ErrDisallowedByRobots is returned when robots.txt forbids fetching a page
var ErrDisallowedByRobots = errors.New("fetch disallowed by robots.txt")

// PageFetcher downloads evidence pages and reduces them to visible text
type PageFetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64

	robotsMu sync.RWMutex
	robots   map[string]*robotstxt.RobotsData

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
	hostRate  rate.Limit
	hostBurst int
	logger    *logrus.Logger
}

// NewPageFetcher creates a fetcher that honors robots.txt and paces requests per host
func NewPageFetcher(userAgent string, timeout time.Duration, requestsPerSecond float64) *PageFetcher {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &PageFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  2 << 20,
		robots:    make(map[string]*robotstxt.RobotsData),
		limiters:  make(map[string]*rate.Limiter),
		hostRate:  rate.Limit(requestsPerSecond),
		hostBurst: 2,
		logger:    logger.Log,
	}
}

// FetchText returns the visible text of the page at rawURL
func (f *PageFetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("invalid page URL %q", rawURL)
	}

	if !f.allowed(ctx, parsed) {
		return "", ErrDisallowedByRobots
	}

	if err := f.limiterFor(parsed.Host).Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", NewAPIError("page", resp.StatusCode, "unexpected status", nil)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	text := VisibleText(doc)

	f.logger.WithFields(map[string]interface{}{
		"correlation_id": logger.CorrelationID(ctx),
		"host":           parsed.Host,
		"text_length":    len(text),
	}).Debug("Fetched evidence page")

	return text, nil
}

// VisibleText concatenates text nodes, skipping non-content elements
func VisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "nav", "footer", "head":
				return
			}
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				if buf.Len() > 0 {
					buf.WriteString(" ")
				}
				buf.WriteString(text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

// allowed consults robots.txt, allowing the fetch when robots.txt cannot be read
func (f *PageFetcher) allowed(ctx context.Context, target *url.URL) bool {
	data, err := f.robotsFor(ctx, target)
	if err != nil {
		return true
	}
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, f.userAgent)
}

func (f *PageFetcher) robotsFor(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	f.robotsMu.RLock()
	data, ok := f.robots[target.Host]
	f.robotsMu.RUnlock()
	if ok {
		return data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", target.Scheme, target.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	f.robotsMu.Lock()
	f.robots[target.Host] = data
	f.robotsMu.Unlock()

	return data, nil
}

func (f *PageFetcher) limiterFor(host string) *rate.Limiter {
	f.limiterMu.Lock()
	defer f.limiterMu.Unlock()

	limiter, ok := f.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(f.hostRate, f.hostBurst)
		f.limiters[host] = limiter
	}
	return limiter
}
