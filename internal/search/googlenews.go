package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const defaultNewsBaseURL = "https://news.google.com/rss/search"

// newsProfile carries the locale parameters Google News expects per language.
type newsProfile struct {
	HL   string // interface language, e.g. "el"
	GL   string // geography, e.g. "GR"
	CEID string // country:language edition id
}

var newsProfiles = map[Language]newsProfile{
	English: {HL: "en-US", GL: "US", CEID: "US:en"},
	Greek:   {HL: "el", GL: "GR", CEID: "GR:el"},
}

// GoogleNewsConfig configures the RSS provider.
type GoogleNewsConfig struct {
	// MaxItems caps results per query. Defaults to 10.
	MaxItems int
	// MaxAge drops items older than this. Defaults to 7 days, matching the
	// dateRestrict window of the API provider.
	MaxAge time.Duration
	// BaseURL overrides the feed endpoint, for tests.
	BaseURL string
	Client  *http.Client
}

// GoogleNews discovers results through the Google News RSS search feed. It is
// a secondary provider: it needs no API key and is not quota bound, so its
// failures are only ever per-query errors.
type GoogleNews struct {
	cfg    GoogleNewsConfig
	parser *gofeed.Parser
}

// NewGoogleNews creates the provider.
func NewGoogleNews(cfg GoogleNewsConfig) *GoogleNews {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 10
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 7 * 24 * time.Hour
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultNewsBaseURL
	}

	parser := gofeed.NewParser()
	parser.UserAgent = "Mozilla/5.0 (compatible; officetrack/1.0)"
	if cfg.Client != nil {
		parser.Client = cfg.Client
	} else {
		parser.Client = &http.Client{Timeout: 20 * time.Second}
	}

	return &GoogleNews{cfg: cfg, parser: parser}
}

func (g *GoogleNews) Name() string { return "google-news" }

// Search fetches the RSS feed for q and maps recent items to results.
func (g *GoogleNews) Search(ctx context.Context, q Query) ([]Result, error) {
	profile, ok := newsProfiles[q.Language]
	if !ok {
		profile = newsProfiles[English]
	}

	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("hl", profile.HL)
	params.Set("gl", profile.GL)
	params.Set("ceid", profile.CEID)
	feedURL := g.cfg.BaseURL + "?" + params.Encode()

	feed, err := g.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("google-news: fetch feed: %w", err)
	}

	cutoff := time.Now().Add(-g.cfg.MaxAge)

	out := make([]Result, 0, g.cfg.MaxItems)
	for _, item := range feed.Items {
		if len(out) >= g.cfg.MaxItems {
			break
		}
		if item.PublishedParsed != nil && item.PublishedParsed.Before(cutoff) {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		out = append(out, Result{
			Title:   strings.TrimSpace(item.Title),
			Snippet: stripMarkup(item.Description),
			URL:     link,
			Query:   q,
		})
	}

	return out, nil
}

// stripMarkup flattens the HTML fragment Google News puts in item
// descriptions down to plain text.
func stripMarkup(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}
