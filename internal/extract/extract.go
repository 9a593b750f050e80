// Package extract pulls structured findings (company, location, description)
// out of unstructured search result text. Extraction is rule based and best
// effort: a result with nothing extractable is dropped silently, never
// reported as an error.
package extract

import (
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/argyx/officetrack/internal/search"
)

// Finding is the canonical unit of output: one candidate office event
// extracted from a search result.
type Finding struct {
	Company      string          `json:"company,omitempty"`
	Location     string          `json:"location,omitempty"`
	Description  string          `json:"description"`
	ProjectType  string          `json:"project_type"`
	Title        string          `json:"title"`
	URL          string          `json:"url"`
	Language     search.Language `json:"language"`
	DiscoveredAt time.Time       `json:"discovered_at"`
}

// strategy is one language's extraction rule set. Strategies share the same
// contract: produce candidates or nothing, never a hard failure.
type strategy interface {
	language() search.Language
	relevant(lower string) bool
	companies(text string) []string
	locations(text string) []string
	projectType(lower string) string
}

// Extractor detects the dominant language of a result and applies the
// matching strategy.
type Extractor struct {
	strategies map[search.Language]strategy
	logger     *slog.Logger
}

// New returns an extractor with the English and Greek strategies registered.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		strategies: map[search.Language]strategy{
			search.English: newEnglishStrategy(),
			search.Greek:   newGreekStrategy(),
		},
		logger: logger,
	}
}

// Extract produces a finding from res, or nil when nothing usable can be
// extracted. A nil return is the expected common case, not a failure.
func (e *Extractor) Extract(res search.Result, now time.Time) *Finding {
	text := res.Text()
	lower := strings.ToLower(text)

	lang := DetectLanguage(text, res.Query.Language)
	strat, ok := e.strategies[lang]
	if !ok {
		strat = e.strategies[search.English]
	}

	if !strat.relevant(lower) {
		return nil
	}

	companies := strat.companies(text)
	locations := strat.locations(text)
	if len(companies) == 0 && len(locations) == 0 {
		return nil
	}

	desc := normalizeText(res.Snippet)
	if desc == "" {
		desc = normalizeText(res.Title)
	}
	if desc == "" {
		return nil
	}

	f := &Finding{
		Description:  desc,
		ProjectType:  strat.projectType(lower),
		Title:        strings.TrimSpace(res.Title),
		URL:          res.URL,
		Language:     lang,
		DiscoveredAt: now,
	}
	if len(companies) > 0 {
		f.Company = companies[0]
	}
	if len(locations) > 0 {
		f.Location = locations[0]
	}

	e.logger.Debug("extracted finding",
		"url", f.URL, "company", f.Company, "location", f.Location, "lang", f.Language)
	return f
}

// detectSample caps how much text language detection looks at.
const detectSample = 1000

// DetectLanguage classifies text as Greek when more than 30% of its letters
// in the leading sample are Greek script, English when mostly Latin, and
// falls back to the declared query language when the sample is too short or
// mixed to call.
func DetectLanguage(text string, fallback search.Language) search.Language {
	var greek, latin, total int
	for i, r := range text {
		if i >= detectSample {
			break
		}
		if !unicode.IsLetter(r) {
			continue
		}
		total++
		switch {
		case unicode.Is(unicode.Greek, r):
			greek++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}

	if total < 20 {
		return fallback
	}
	if float64(greek) > 0.3*float64(total) {
		return search.Greek
	}
	if float64(latin) > 0.5*float64(total) {
		return search.English
	}
	return fallback
}

// normalizeText collapses whitespace runs and trims the result.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// tokenize splits lowercased text on anything that is not a letter or digit.
func tokenize(lower string) []string {
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// cleanCandidates trims, bounds-checks, and dedups extracted names while
// preserving first-match order.
func cleanCandidates(names []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, n := range names {
		n = strings.Trim(n, " \t.,;:-–")
		if len(n) <= 3 || len(n) >= 80 {
			continue
		}
		key := strings.ToLower(n)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}
