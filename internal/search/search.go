package search

import "context"

// Language identifies one of the two supported query/content languages.
type Language string

const (
	English Language = "en"
	Greek   Language = "el"
)

// Query is a single search to issue against a provider. Queries are generated
// fresh each run and never persisted.
type Query struct {
	Text     string   `json:"text"`
	Language Language `json:"language"`
}

// Result is one raw item returned by a search provider. Content is optionally
// filled in later with the main text of the page behind URL; extraction prefers
// it over the snippet when present.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
	Content string `json:"content,omitempty"`
	Query   Query  `json:"source_query"`
}

// Provider abstracts a search backend that can resolve a query into result
// items. Implementations may use official APIs or feed endpoints. A Provider
// retries transient failures internally; errors it returns are either
// ErrQuotaExceeded, *AuthError, or a per-query failure the caller records and
// moves past.
type Provider interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Result, error)
}

// Text returns the searchable text of a result: the fetched page content when
// available, otherwise title plus snippet.
func (r Result) Text() string {
	if r.Content != "" {
		return r.Title + " " + r.Content
	}
	return r.Title + " " + r.Snippet
}
