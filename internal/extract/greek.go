package extract

import (
	"regexp"
	"strings"

	"github.com/argyx/officetrack/internal/search"
)

// Greek legal-form abbreviations and sector words that follow a company name.
var greekCompanySuffixes = []string{
	"ΑΕ", "Α.Ε.", "Α.Ε", "ΕΠΕ", "Ε.Π.Ε.", "Ε.Π.Ε", "ΟΕ", "Ο.Ε.", "ΙΚΕ", "Ι.Κ.Ε.",
	"ΑΕΒΕ", "Α.Ε.Β.Ε.", "ΑΒΕΕ", "Α.Β.Ε.Ε.", "ΑΞΤΕ", "Α.Ξ.Τ.Ε.",
	"Όμιλος", "Εταιρεία", "Εταιρεια", "Ανάπτυξη", "Αναπτυξη", "Ακίνητα", "Ακινητα",
	"Επενδύσεις", "Επενδυσεις", "Κατασκευαστική", "Κατασκευαστικη",
}

var greekCompanyVerbs = []string{
	"ανακοίνωσε", "παρουσίασε", "απέκτησε", "αγόρασε", "μίσθωσε", "μετεγκαταστάθηκε",
}

// Stems checked by prefix; the snowball package has no Greek stemmer, so a
// prefix match over inflected forms stands in for one.
var greekKeywordStems = []string{
	"γραφεί", "ακίνητ", "κτίρι", "κτιρί", "έδρα", "έδρας",
	"επένδυσ", "ανάπτυξ", "μετεγκατάστασ", "μίσθωσ", "στέγ",
}

// greekStopWords is a compact article/particle list; enough to keep the
// keyword check from firing on grammar words.
var greekStopWords = map[string]struct{}{
	"ο": {}, "η": {}, "το": {}, "οι": {}, "τα": {}, "του": {}, "της": {},
	"των": {}, "τον": {}, "την": {}, "και": {}, "κι": {}, "κ": {}, "με": {},
	"σε": {}, "από": {}, "για": {}, "προς": {}, "παρά": {}, "αντί": {},
	"μέχρι": {}, "ως": {}, "πως": {}, "ότι": {}, "είναι": {}, "ήταν": {},
	"θα": {}, "να": {}, "δεν": {}, "μη": {}, "μην": {}, "στο": {}, "στη": {},
	"στην": {}, "στον": {}, "στα": {}, "στις": {}, "στους": {}, "ένα": {},
	"μια": {}, "μία": {}, "αυτό": {}, "αυτή": {}, "αυτός": {},
}

var greekKnownCities = []string{
	"Αθήνα", "Θεσσαλονίκη", "Πάτρα", "Ηράκλειο", "Πειραιάς", "Λάρισα",
	"Γλυφάδα", "Μαρούσι", "Χαλάνδρι", "Κηφισιά", "Καλλιθέα",
	"Παλαιό Φάληρο", "Βούλα",
}

const (
	greekUpper = `Α-ΩΆΈΉΊΌΎΏΪΫ`
	greekLower = `α-ωάέήίόύώϊϋΐΰς`
)

type greekStrategy struct {
	suffixRe    *regexp.Regexp
	verbRe      *regexp.Regexp
	quotedRe    *regexp.Regexp
	locationRes []*regexp.Regexp
}

func newGreekStrategy() *greekStrategy {
	namePart := `([` + greekUpper + `A-Z][\p{L}\d&'. -]{2,50}?)`
	cityPart := `([` + greekUpper + `][` + greekLower + `]+(?:\s+[` + greekUpper + `][` + greekLower + `]+)?)`

	return &greekStrategy{
		suffixRe: regexp.MustCompile(
			namePart + `((?:\s(?:` + joinQuoted(greekCompanySuffixes) + `))+)(?:\s|$|[,.])`),
		verbRe: regexp.MustCompile(
			namePart + `\s(?:` + joinQuoted(greekCompanyVerbs) + `)(?:\s|$|[,.])`),
		quotedRe: regexp.MustCompile(
			`[«"]([^«»"]{3,60}?)[»"][\s,.]+(?:η|ο|το)\s+(?:εταιρεία|εταιρία|όμιλος|επενδυτής|κατασκευαστική)`),
		locationRes: []*regexp.Regexp{
			regexp.MustCompile(`(?:στ(?:ην|ον|ο|α)|κοντά\s+στ(?:ην|ον|ο|α))\s+` + cityPart),
			regexp.MustCompile(`(?:μετεγκατάσταση|μετακόμιση)\s+στ(?:ην|ον|ο|α)\s+` + cityPart),
			regexp.MustCompile(cityPart + `\s+(?:περιοχή|συνοικία|προάστιο)`),
		},
	}
}

func (s *greekStrategy) language() search.Language { return search.Greek }

func (s *greekStrategy) relevant(lower string) bool {
	for _, tok := range tokenize(lower) {
		if _, stop := greekStopWords[tok]; stop {
			continue
		}
		for _, stem := range greekKeywordStems {
			if strings.HasPrefix(tok, stem) {
				return true
			}
		}
	}
	return false
}

func (s *greekStrategy) companies(text string) []string {
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

	return cleanCandidates(names)
}

func (s *greekStrategy) locations(text string) []string {
	var names []string
	for _, re := range s.locationRes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			names = append(names, strings.TrimSpace(m[1]))
		}
	}
	for _, city := range greekKnownCities {
		if strings.Contains(text, city) {
			names = append(names, city)
		}
	}
	return cleanCandidates(names)
}

func (s *greekStrategy) projectType(lower string) string {
	switch {
	case containsAnyOf(lower, "νέο γραφείο", "νέα γραφεία", "νέο κτίριο", "νέα έδρα"):
		return "New Office"
	case containsAnyOf(lower, "μετεγκατάσταση", "μετακόμιση", "μεταφορά γραφείων"):
		return "Relocation"
	case containsAnyOf(lower, "επέκταση", "επιπλέον χώρος"):
		return "Expansion"
	case containsAnyOf(lower, "ανακαίνιση", "αναβάθμιση"):
		return "Renovation"
	case containsAnyOf(lower, "μίσθωση", "ενοικίαση", "μισθώνει", "ενοικιάζει"):
		return "Leasing"
	case containsAnyOf(lower, "αγορά", "εξαγορά", "απόκτηση", "αγοράζει"):
		return "Acquisition"
	default:
		return "Office Project"
	}
}
