// Package scraper fetches an article page, extracts its readable text
// and detects its language.
package scraper

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const (
	fetchTimeout = 20 * time.Second
	maxRetries   = 3
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"
)

// Scraper fetches pages with retries and readability extraction.
type Scraper struct {
	client *http.Client
}

func New() *Scraper {
	return &Scraper{client: &http.Client{Timeout: fetchTimeout}}
}

// Scrape fetches the page and returns its readable text, trimmed to the
// focus hint when one is given, plus the detected language code.
func (s *Scraper) Scrape(ctx context.Context, pageURL, focus string) (string, string, error) {
	if !strings.HasPrefix(pageURL, "http://") && !strings.HasPrefix(pageURL, "https://") {
		return "", "", fmt.Errorf("invalid URL: %q", pageURL)
	}

	resp, err := s.fetch(ctx, pageURL)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", "", fmt.Errorf("parse URL: %w", err)
	}
	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return "", "", fmt.Errorf("readability extraction failed: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", "", fmt.Errorf("no readable text extracted from %s", pageURL)
	}
	if focus != "" {
		text = focusSection(text, focus)
	}

	lang := DetectLanguage(text)
	log.Printf("Extracted %d characters from %s (lang %s)", len(text), pageURL, lang)
	return text, lang, nil
}

// fetch retries transient failures with exponential backoff.
func (s *Scraper) fetch(ctx context.Context, pageURL string) (*http.Response, error) {
	var lastErr error
	backoff := time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d from %s", resp.StatusCode, pageURL)
		} else if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, pageURL)
		} else {
			return resp, nil
		}

		if attempt < maxRetries {
			log.Printf("Warning: fetch attempt %d/%d failed: %v", attempt, maxRetries, lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("fetch %s: %w", pageURL, lastErr)
}

// focusSection narrows the text to the paragraphs mentioning the focus
// phrase, keeping the full text when nothing matches.
func focusSection(text, focus string) string {
	needle := strings.ToLower(focus)
	paragraphs := strings.Split(text, "\n")
	var kept []string
	for _, p := range paragraphs {
		if strings.Contains(strings.ToLower(p), needle) {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	if len(kept) == 0 {
		return text
	}
	return strings.Join(kept, "\n")
}
