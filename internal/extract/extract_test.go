package extract

import (
	"testing"
	"time"

	"github.com/argyx/officetrack/internal/search"
)

var now = time.Date(2026, 8, 23, 8, 0, 0, 0, time.UTC)

func englishResult(title, snippet string) search.Result {
	return search.Result{
		Title:   title,
		Snippet: snippet,
		URL:     "https://example.com/article",
		Query:   search.Query{Text: "new office development", Language: search.English},
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		fallback search.Language
		want     search.Language
	}{
		{
			name:     "english",
			text:     "Acme Properties announced a new office building in Athens, Greece today",
			fallback: search.Greek,
			want:     search.English,
		},
		{
			name:     "greek",
			text:     "Η εταιρεία ανακοίνωσε νέα γραφεία στο Μαρούσι με επένδυση εκατομμυρίων",
			fallback: search.English,
			want:     search.Greek,
		},
		{
			name:     "mixed mostly greek",
			text:     "Η PwC ανακοίνωσε μετεγκατάσταση των γραφείων της στην Αθήνα το επόμενο έτος",
			fallback: search.English,
			want:     search.Greek,
		},
		{
			name:     "too short falls back",
			text:     "PwC HQ",
			fallback: search.Greek,
			want:     search.Greek,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.text, tt.fallback); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtract_EnglishCompanySuffix(t *testing.T) {
	e := New(nil)
	res := englishResult(
		"New headquarters for developer",
		"Hellenic Properties Ltd announced a new office building in Marousi, Greece spanning 12,000 sqm.",
	)

	f := e.Extract(res, now)
	if f == nil {
		t.Fatal("expected a finding")
	}
	if f.Company != "Hellenic Properties Ltd" {
		t.Errorf("company = %q", f.Company)
	}
	if f.Location != "Marousi" {
		t.Errorf("location = %q", f.Location)
	}
	if f.Language != search.English {
		t.Errorf("language = %s", f.Language)
	}
	if f.ProjectType != "New Office" {
		t.Errorf("project type = %q", f.ProjectType)
	}
	if f.URL != res.URL {
		t.Errorf("url = %q", f.URL)
	}
	if !f.DiscoveredAt.Equal(now) {
		t.Errorf("discovered_at = %v", f.DiscoveredAt)
	}
}

func TestExtract_EnglishVerbPattern(t *testing.T) {
	e := New(nil)
	res := englishResult(
		"Tech firm on the move",
		"Datawise announced it leased three floors of office space in Chalandri for its growing team.",
	)

	f := e.Extract(res, now)
	if f == nil {
		t.Fatal("expected a finding")
	}
	if f.Company != "Datawise" {
		t.Errorf("company = %q", f.Company)
	}
}

func TestExtract_TrackedCompany(t *testing.T) {
	e := New(nil)
	res := englishResult(
		"Big four expansion",
		"KPMG is expanding its office footprint in Athens with additional space for advisory staff.",
	)

	f := e.Extract(res, now)
	if f == nil {
		t.Fatal("expected a finding")
	}
	if f.Company != "KPMG" {
		t.Errorf("company = %q", f.Company)
	}
	if f.Location != "Athens" {
		t.Errorf("location = %q", f.Location)
	}
	if f.ProjectType != "Expansion" {
		t.Errorf("project type = %q", f.ProjectType)
	}
}

func TestExtract_GreekResult(t *testing.T) {
	e := New(nil)
	res := search.Result{
		Title:   "Νέα γραφεία στο Μαρούσι",
		Snippet: "Η Ελληνικά Ακίνητα ΑΕ ανακοίνωσε νέα γραφεία στο Μαρούσι με μίσθωση δέκα ετών.",
		URL:     "https://example.gr/article",
		Query:   search.Query{Text: "νέα γραφεία", Language: search.Greek},
	}

	f := e.Extract(res, now)
	if f == nil {
		t.Fatal("expected a finding")
	}
	if f.Language != search.Greek {
		t.Errorf("language = %s", f.Language)
	}
	if f.Company == "" {
		t.Error("expected a company candidate")
	}
	if f.Location != "Μαρούσι" {
		t.Errorf("location = %q", f.Location)
	}
	if f.ProjectType != "New Office" {
		t.Errorf("project type = %q", f.ProjectType)
	}
}

func TestExtract_NoEntities(t *testing.T) {
	e := New(nil)
	res := englishResult(
		"General market commentary",
		"The office sector saw broad trends this quarter according to unnamed analysts.",
	)

	if f := e.Extract(res, now); f != nil {
		t.Fatalf("expected no finding, got %+v", f)
	}
}

func TestExtract_IrrelevantText(t *testing.T) {
	e := New(nil)
	res := englishResult(
		"Football transfer news",
		"Olympiacos FC signed a new striker from Sevilla in a record deal.",
	)

	if f := e.Extract(res, now); f != nil {
		t.Fatalf("expected no finding for off-topic text, got %+v", f)
	}
}

func TestExtract_EmptySnippetFallsBackToTitle(t *testing.T) {
	e := New(nil)
	res := englishResult("PwC opens new office building in Glyfada", "")

	f := e.Extract(res, now)
	if f == nil {
		t.Fatal("expected a finding built from the title")
	}
	if f.Description == "" {
		t.Error("description must be non-empty")
	}
}

func TestExtract_UsesFetchedContent(t *testing.T) {
	e := New(nil)
	res := englishResult("Short teaser", "Read the full story.")
	res.Content = "Prodea Investments announced the acquisition of an office building in Kallithea, Greece."

	f := e.Extract(res, now)
	if f == nil {
		t.Fatal("expected a finding from fetched page content")
	}
	if f.Company == "" {
		t.Error("expected company from page content")
	}
	if f.Location != "Kallithea" {
		t.Errorf("location = %q", f.Location)
	}
}
