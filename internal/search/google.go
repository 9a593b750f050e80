package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/argyx/officetrack/pkg/httpclient"
)

const defaultCSEBaseURL = "https://www.googleapis.com/customsearch/v1"

// resultsPerPage is fixed by the Custom Search API.
const resultsPerPage = 10

// GoogleCSEConfig configures the Google Custom Search provider.
type GoogleCSEConfig struct {
	APIKey   string
	EngineID string
	// MaxPages caps paginated requests per query. Defaults to 1.
	MaxPages int
	// DateRestrict narrows results by age, e.g. "d7" for the last week.
	DateRestrict string
	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
	Client  *httpclient.Client
	Logger  *slog.Logger
	// RetryInterval is the initial backoff delay for transient failures.
	RetryInterval time.Duration
}

// GoogleCSE issues queries against the Google Custom Search JSON API,
// paginating within the per-query page cap. Transient failures are retried
// with exponential backoff; quota exhaustion and rejected credentials are
// surfaced as ErrQuotaExceeded and *AuthError respectively.
type GoogleCSE struct {
	cfg    GoogleCSEConfig
	client *httpclient.Client
	logger *slog.Logger
}

// NewGoogleCSE creates the provider. APIKey and EngineID are required.
func NewGoogleCSE(cfg GoogleCSEConfig) (*GoogleCSE, error) {
	if cfg.APIKey == "" || cfg.EngineID == "" {
		return nil, errors.New("google-cse: api key and engine id are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultCSEBaseURL
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = httpclient.New(httpclient.Config{
			Timeout:      30 * time.Second,
			MaxRedirects: 3,
			Headers:      map[string]string{"Accept": "application/json"},
		})
		if err != nil {
			return nil, fmt.Errorf("google-cse: %w", err)
		}
	}

	return &GoogleCSE{cfg: cfg, client: client, logger: cfg.Logger}, nil
}

func (g *GoogleCSE) Name() string { return "google-cse" }

// Search resolves q into result items, following nextPage cursors until the
// API-reported results are exhausted or the page cap is reached.
func (g *GoogleCSE) Search(ctx context.Context, q Query) ([]Result, error) {
	var out []Result

	start := 1
	for page := 0; page < g.cfg.MaxPages; page++ {
		resp, err := g.fetchPage(ctx, q, start)
		if err != nil {
			// Results from earlier pages are kept even when a later page fails.
			if len(out) > 0 && !IsFatal(err) {
				g.logger.Warn("partial pagination", "query", q.Text, "page", page, "err", err)
				return out, nil
			}
			return out, err
		}

		for _, item := range resp.Items {
			out = append(out, Result{
				Title:   item.Title,
				Snippet: item.Snippet,
				URL:     item.Link,
				Query:   q,
			})
		}

		if len(resp.Queries.NextPage) == 0 {
			break
		}
		start = resp.Queries.NextPage[0].StartIndex
		if start <= 0 {
			break
		}
	}

	return out, nil
}

type cseResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
	Queries struct {
		NextPage []struct {
			StartIndex int `json:"startIndex"`
		} `json:"nextPage"`
	} `json:"queries"`
}

type cseErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

func (g *GoogleCSE) fetchPage(ctx context.Context, q Query, start int) (*cseResponse, error) {
	params := url.Values{}
	params.Set("key", g.cfg.APIKey)
	params.Set("cx", g.cfg.EngineID)
	params.Set("q", q.Text)
	params.Set("num", fmt.Sprint(resultsPerPage))
	if start > 1 {
		params.Set("start", fmt.Sprint(start))
	}
	if g.cfg.DateRestrict != "" {
		params.Set("dateRestrict", g.cfg.DateRestrict)
	}
	reqURL := g.cfg.BaseURL + "?" + params.Encode()

	var parsed *cseResponse
	op := func() error {
		resp, err := g.client.Get(ctx, reqURL)
		if err != nil {
			// Network-level failure: retried.
			return fmt.Errorf("google-cse: request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("google-cse: read body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return g.classifyStatus(resp.StatusCode, body)
		}

		var r cseResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return backoff.Permanent(fmt.Errorf("google-cse: decode response: %w", err))
		}
		parsed = &r
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.cfg.RetryInterval
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, 2), ctx))
	if err != nil {
		return nil, err
	}
	return parsed, nil
}

// classifyStatus maps a non-200 API response onto the error taxonomy. The
// returned error is wrapped as permanent unless the failure is worth retrying.
func (g *GoogleCSE) classifyStatus(status int, body []byte) error {
	if status >= 500 {
		// Server-side trouble: retried with backoff.
		return fmt.Errorf("google-cse: http %d", status)
	}

	var eb cseErrorBody
	_ = json.Unmarshal(body, &eb)

	switch status {
	case http.StatusTooManyRequests:
		return backoff.Permanent(fmt.Errorf("%w: http 429: %s", ErrQuotaExceeded, eb.Error.Message))
	case http.StatusForbidden:
		for _, e := range eb.Error.Errors {
			switch e.Reason {
			case "dailyLimitExceeded", "quotaExceeded", "rateLimitExceeded", "userRateLimitExceeded":
				return backoff.Permanent(fmt.Errorf("%w: %s", ErrQuotaExceeded, e.Reason))
			}
		}
		if eb.Error.Status == "RESOURCE_EXHAUSTED" {
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrQuotaExceeded, eb.Error.Message))
		}
		return backoff.Permanent(&AuthError{Provider: g.Name(), Err: fmt.Errorf("http 403: %s", eb.Error.Message)})
	case http.StatusUnauthorized:
		return backoff.Permanent(&AuthError{Provider: g.Name(), Err: fmt.Errorf("http 401: %s", eb.Error.Message)})
	default:
		return backoff.Permanent(fmt.Errorf("google-cse: http %d: %s", status, eb.Error.Message))
	}
}
