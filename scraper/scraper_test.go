package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>Test Article</title></head>
<body>
<article>
<h1>The merger everyone expected</h1>
<p>The merger was announced on Monday after months of negotiation between the two companies involved in the process.</p>
<p>Regulators still have to approve the combined entity before trading resumes and shareholders receive their compensation.</p>
<p>Analysts expect the market to react strongly when the final decision lands later this quarter according to reports.</p>
</article>
</body></html>`

func TestScrapeExtractsReadableText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()

	text, lang, err := New().Scrape(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if !strings.Contains(text, "merger was announced") {
		t.Fatalf("extracted text missing article body:\n%s", text)
	}
	if strings.Contains(text, "<p>") {
		t.Fatal("extracted text contains markup")
	}
	if lang != "en" {
		t.Fatalf("lang = %q; want en", lang)
	}
}

func TestScrapeRejectsBadURL(t *testing.T) {
	for _, bad := range []string{"", "example.com/article", "ftp://example.com/a"} {
		if _, _, err := New().Scrape(context.Background(), bad, ""); err == nil {
			t.Fatalf("Scrape(%q) accepted an invalid URL", bad)
		}
	}
}

func TestScrapeClientErrorFailsFast(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, _, err := New().Scrape(context.Background(), srv.URL, ""); err == nil {
		t.Fatal("Scrape of a 404 page did not fail")
	}
	if hits != 1 {
		t.Fatalf("404 was retried %d times; client errors must not be retried", hits)
	}
}

func TestScrapeRetriesServerErrors(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()

	text, _, err := New().Scrape(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("Scrape after retries: %v", err)
	}
	if text == "" {
		t.Fatal("empty text after successful retry")
	}
	if hits != 3 {
		t.Fatalf("server hit %d times; want 3", hits)
	}
}

func TestFocusSection(t *testing.T) {
	text := "First paragraph about weather.\nSecond paragraph about the Merger deal.\nThird about sports."

	got := focusSection(text, "merger")
	if got != "Second paragraph about the Merger deal." {
		t.Fatalf("focusSection = %q", got)
	}

	// No match keeps the full text.
	if got := focusSection(text, "economy"); got != text {
		t.Fatalf("unmatched focus changed the text:\n%q", got)
	}
}
