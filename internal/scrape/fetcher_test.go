package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/argyx/officetrack/internal/search"
)

func TestPageText_PrefersMainBlock(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body>
			<nav>navigation junk</nav>
			<main><p>PwC announced a new office in Marousi.</p></main>
			<footer>footer junk</footer>
		</body></html>`)
	}))
	defer ts.Close()

	f, err := NewFetcher(FetchConfig{})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	text, err := f.PageText(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("PageText: %v", err)
	}
	if !strings.Contains(text, "PwC announced a new office") {
		t.Errorf("expected main content, got %q", text)
	}
	if strings.Contains(text, "navigation junk") {
		t.Errorf("main block extraction leaked surrounding chrome: %q", text)
	}
}

func TestPageText_FallsBackToBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><p>plain body text</p><script>var x = 1;</script></body></html>`)
	}))
	defer ts.Close()

	f, err := NewFetcher(FetchConfig{})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	text, err := f.PageText(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("PageText: %v", err)
	}
	if text != "plain body text" {
		t.Errorf("expected script-free body text, got %q", text)
	}
}

func TestPageText_RejectsNonHTML(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4")
	}))
	defer ts.Close()

	f, err := NewFetcher(FetchConfig{})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	if _, err := f.PageText(context.Background(), ts.URL); err == nil {
		t.Fatal("expected error for non-HTML content type")
	}
}

func TestEnrich_KeepsSnippetOnFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok" {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><article>full article text</article></body></html>`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	f, err := NewFetcher(FetchConfig{})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	results := []search.Result{
		{URL: ts.URL + "/ok", Snippet: "snippet a"},
		{URL: ts.URL + "/missing", Snippet: "snippet b"},
	}
	f.Enrich(context.Background(), results)

	if results[0].Content != "full article text" {
		t.Errorf("expected enriched content, got %q", results[0].Content)
	}
	if results[1].Content != "" {
		t.Errorf("failed fetch must leave content empty, got %q", results[1].Content)
	}
	if results[1].Snippet != "snippet b" {
		t.Errorf("snippet must be untouched, got %q", results[1].Snippet)
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	s := "αβγδε"
	got := truncate(s, 5)
	if !strings.HasPrefix(s, got) {
		t.Fatalf("truncate returned non-prefix %q", got)
	}
	for _, r := range got {
		if r == '�' {
			t.Fatalf("truncate split a rune: %q", got)
		}
	}
}
