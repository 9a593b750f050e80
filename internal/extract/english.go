package extract

import (
	"regexp"
	"strings"

	snowballeng "github.com/kljensen/snowball/english"

	"github.com/argyx/officetrack/internal/query"
	"github.com/argyx/officetrack/internal/search"
)

// Legal-form and sector suffixes that mark the end of an English company name.
var englishCompanySuffixes = []string{
	"Inc", "LLC", "Ltd", "Limited", "Corp", "Corporation", "Co", "Company",
	"Group", "Holdings", "Enterprises", "Ventures", "Capital", "Partners",
	"Properties", "Real Estate", "Development", "Investments",
}

// Announcement verbs that typically follow a company name in news copy.
var englishCompanyVerbs = []string{
	"announced", "reported", "unveiled", "launched", "introduced",
	"acquired", "purchased", "bought", "leased", "moved", "relocated",
}

// Keywords whose stemmed form marks a result as office related.
var englishKeywords = []string{
	"office", "headquarters", "relocation", "lease", "leasing", "building",
	"development", "property", "workplace", "campus", "premises",
}

var englishKnownCities = []string{
	"Athens", "Thessaloniki", "Patras", "Heraklion", "Piraeus", "Larissa",
	"Glyfada", "Marousi", "Chalandri", "Kifissia", "Kallithea",
	"Palaio Faliro", "Voula",
}

type englishStrategy struct {
	suffixRe     *regexp.Regexp
	verbRe       *regexp.Regexp
	quotedRe     *regexp.Regexp
	locationRes  []*regexp.Regexp
	keywordStems map[string]struct{}
}

func newEnglishStrategy() *englishStrategy {
	s := &englishStrategy{
		// The suffix run is greedy so "Hellenic Properties Ltd" is captured
		// whole rather than stopping at the first suffix word.
		suffixRe: regexp.MustCompile(
			`([A-Z][\w&'. -]{2,50}?)((?:\s(?:` + joinQuoted(englishCompanySuffixes) + `))+)\b`),
		verbRe: regexp.MustCompile(
			`([A-Z][\w&' -]{2,50}?)\s(?:` + joinQuoted(englishCompanyVerbs) + `)\b`),
		quotedRe: regexp.MustCompile(
			`(?i)"([^"]{3,60}?)"[\s,.]+(?:a|an|the)\s+(?:leading|global|company|firm|developer|investor)`),
		locationRes: []*regexp.Regexp{
			regexp.MustCompile(`(?:in|at|near|to|from)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?),?\s+(?:Greece|Hellas)`),
			regexp.MustCompile(`(?:relocating|moved|moving)\s+(?:to|into|in)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
			regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)\s+(?:district|area|suburb|region|business\s+center)`),
			regexp.MustCompile(`new\s+(?:office|headquarters|building)\s+(?:in|at)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
		},
		keywordStems: make(map[string]struct{}),
	}
	for _, kw := range englishKeywords {
		s.keywordStems[snowballeng.Stem(kw, false)] = struct{}{}
	}
	return s
}

func (s *englishStrategy) language() search.Language { return search.English }

// relevant reports whether the stop-word-filtered, stemmed tokens of the text
// contain at least one office-related keyword.
func (s *englishStrategy) relevant(lower string) bool {
	for _, tok := range tokenize(lower) {
		if snowballeng.IsStopWord(tok) {
			continue
		}
		if _, ok := s.keywordStems[snowballeng.Stem(tok, false)]; ok {
			return true
		}
	}
	return false
}

func (s *englishStrategy) companies(text string) []string {
	var names []string

	for _, m := range s.suffixRe.FindAllStringSubmatch(text, -1) {
		names = append(names, strings.TrimSpace(m[1]+m[2]))
	}
	for _, m := range s.verbRe.FindAllStringSubmatch(text, -1) {
		names = append(names, strings.TrimSpace(m[1]))
	}
	for _, m := range s.quotedRe.FindAllStringSubmatch(text, -1) {
		names = append(names, strings.TrimSpace(m[1]))
	}
	for _, company := range query.TrackedCompanies {
		if strings.Contains(text, company) {
			names = append(names, company)
		}
	}

	return cleanCandidates(names)
}

func (s *englishStrategy) locations(text string) []string {
	var names []string
	for _, re := range s.locationRes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			names = append(names, strings.TrimSpace(m[1]))
		}
	}
	for _, city := range englishKnownCities {
		if strings.Contains(text, city) {
			names = append(names, city)
		}
	}
	return cleanCandidates(names)
}

func (s *englishStrategy) projectType(lower string) string {
	switch {
	case containsAnyOf(lower, "new office", "new building", "new headquarters", "new hq"):
		return "New Office"
	case containsAnyOf(lower, "relocation", "relocating", "moving to", "moved to"):
		return "Relocation"
	case containsAnyOf(lower, "expansion", "expanding", "additional space", "growing"):
		return "Expansion"
	case containsAnyOf(lower, "renovation", "refurbishment", "remodeling", "upgrading"):
		return "Renovation"
	case containsAnyOf(lower, "lease", "leasing", "leased", "rental", "renting"):
		return "Leasing"
	case containsAnyOf(lower, "purchase", "acquisition", "acquired", "bought", "buying"):
		return "Acquisition"
	default:
		return "Office Project"
	}
}

func joinQuoted(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return strings.Join(quoted, "|")
}

func containsAnyOf(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
