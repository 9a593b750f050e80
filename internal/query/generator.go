// Package query builds the bounded set of search queries for one run by
// crossing topic templates with languages and target cities. Generation is
// deterministic and performs no I/O.
package query

import (
	"fmt"

	"github.com/argyx/officetrack/internal/search"
)

var englishTopics = []string{
	"office projects",
	"new office development",
	"commercial real estate acquisition",
	"office relocation",
	"office building purchase",
	"new headquarters",
	"corporate office move",
	"office space leasing",
	"business district development",
}

var greekTopics = []string{
	"γραφεία έργα",
	"νέα γραφεία",
	"επαγγελματικά ακίνητα",
	"ανάπτυξη γραφείων",
	"αγορά κτιρίου γραφείων",
	"μετεγκατάσταση γραφείων",
	"επαγγελματική στέγη",
	"νέα έδρα εταιρείας",
	"επένδυση ακινήτων γραφείων",
	"εμπορικό ακίνητο",
}

var englishCities = []string{"Athens", "Thessaloniki", "Patras", "Heraklion", "Piraeus"}

var greekCities = []string{"Αθήνα", "Θεσσαλονίκη", "Πάτρα", "Ηράκλειο", "Πειραιάς"}

var projectTypes = map[search.Language][]string{
	search.English: {
		"office renovation", "office expansion", "office campus",
		"tech hub", "corporate campus", "innovation center",
	},
	search.Greek: {
		"ανακαίνιση γραφείων", "επέκταση γραφείων", "κέντρο καινοτομίας",
	},
}

// TrackedCompanies seeds company-specific queries and biases extraction
// toward names already known to matter. These are examples only; extraction
// detects any company.
var TrackedCompanies = []string{
	"PwC", "KPMG", "Deloitte", "EY", "Lamda Development",
	"Dimand", "Prodea", "Noval Property",
}

// Generator produces up to MaxQueries distinct queries per run.
type Generator struct {
	MaxQueries int
	Languages  []search.Language
}

// New returns a generator for the given languages capped at maxQueries.
// With no languages given, both English and Greek are used.
func New(maxQueries int, langs ...search.Language) *Generator {
	if len(langs) == 0 {
		langs = []search.Language{search.English, search.Greek}
	}
	return &Generator{MaxQueries: maxQueries, Languages: langs}
}

// Generate returns the ordered query list for one run. Base topics come first,
// then topic/city combinations, project types, and tracked-company queries.
// Identical query text is emitted at most once, and the result never exceeds
// MaxQueries.
func (g *Generator) Generate() []search.Query {
	var out []search.Query
	seen := make(map[string]struct{})

	add := func(text string, lang search.Language) {
		if g.MaxQueries > 0 && len(out) >= g.MaxQueries {
			return
		}
		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		out = append(out, search.Query{Text: text, Language: lang})
	}

	for _, lang := range g.Languages {
		for _, topic := range g.topics(lang) {
			add(topic, lang)
		}
	}

	for _, lang := range g.Languages {
		switch lang {
		case search.English:
			// Only the leading topics get city variants; the base list
			// already consumes a good share of the query budget.
			for _, topic := range englishTopics[:6] {
				for _, city := range englishCities {
					add(fmt.Sprintf("%s in %s, Greece", topic, city), lang)
				}
			}
		case search.Greek:
			for _, topic := range greekTopics[:6] {
				for _, city := range greekCities {
					add(fmt.Sprintf("%s %s", topic, city), lang)
				}
			}
		}
	}

	for _, lang := range g.Languages {
		for _, pt := range projectTypes[lang] {
			if lang == search.English {
				add(pt+" Greece", lang)
			} else {
				add(pt, lang)
			}
		}
	}

	if g.hasLanguage(search.English) {
		for _, company := range TrackedCompanies {
			add(company+" new office Greece", search.English)
		}
	}

	return out
}

func (g *Generator) topics(lang search.Language) []string {
	switch lang {
	case search.Greek:
		return greekTopics
	default:
		return englishTopics
	}
}

func (g *Generator) hasLanguage(lang search.Language) bool {
	for _, l := range g.Languages {
		if l == lang {
			return true
		}
	}
	return false
}
