// Package scrape fetches the article pages behind search results so
// extraction can work with more text than the snippet alone.
package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/argyx/officetrack/internal/search"
	"github.com/argyx/officetrack/pkg/httpclient"
	"github.com/argyx/officetrack/pkg/ratelimit"
	"github.com/argyx/officetrack/pkg/useragent"
)

// maxPageText caps the amount of extracted text per page.
const maxPageText = 10000

// FetchConfig configures the page fetcher.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	// MaxBodyBytes caps the downloaded body. Defaults to 2 MiB.
	MaxBodyBytes int64
	// RequestsPerSecond limits fetches across all pages (0 = unlimited).
	RequestsPerSecond float64
	// Jitter applies randomness to the rate limiter (0.0 to 1.0).
	Jitter float64
	Logger *slog.Logger
}

// Fetcher downloads a page and extracts its main textual content.
type Fetcher struct {
	client  *httpclient.Client
	limiter *ratelimit.Limiter
	uas     *useragent.Pool
	maxBody int64
	logger  *slog.Logger
}

// NewFetcher initializes a fetcher with the given configuration.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 5
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 2 << 20
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.7,el;q=0.6",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scrape: create client: %w", err)
	}

	return &Fetcher{
		client:  client,
		limiter: ratelimit.New(cfg.RequestsPerSecond, cfg.Jitter),
		uas:     useragent.NewPool(nil),
		maxBody: cfg.MaxBodyBytes,
		logger:  cfg.Logger,
	}, nil
}

// PageText fetches targetURL and returns the text of its main content block.
// Non-HTML responses and non-2xx statuses yield an error; callers treat any
// failure as "no extra content" and fall back to the snippet.
func (f *Fetcher) PageText(ctx context.Context, targetURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("scrape: rate limiter: %w", err)
	}

	req, err := http.NewRequest(http.MethodGet, targetURL, nil)
	if err != nil {
		return "", fmt.Errorf("scrape: build request: %w", err)
	}
	req.Header.Set("User-Agent", f.uas.Next())

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("scrape: fetch %s: %w", targetURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("scrape: fetch %s: http %d", targetURL, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "html") {
		return "", fmt.Errorf("scrape: fetch %s: unsupported content type %q", targetURL, contentType)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return "", fmt.Errorf("scrape: parse %s: %w", targetURL, err)
	}

	return mainText(doc), nil
}

// mainText prefers a <main> or <article> block over the whole body, the same
// priority order most news pages respect.
func mainText(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()

	for _, sel := range []string{"main", "article", "body"} {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		text := strings.Join(strings.Fields(node.Text()), " ")
		if text == "" {
			continue
		}
		return truncate(text, maxPageText)
	}
	return ""
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Enrich fills in the Content of each result with fetched page text where
// possible. A failed fetch leaves the result untouched; extraction then works
// from the snippet, as the original search item is still usable.
func (f *Fetcher) Enrich(ctx context.Context, results []search.Result) {
	for i := range results {
		text, err := f.PageText(ctx, results[i].URL)
		if err != nil {
			f.logger.Debug("page fetch failed, keeping snippet", "url", results[i].URL, "err", err)
			continue
		}
		if text != "" {
			results[i].Content = text
		}
	}
}
