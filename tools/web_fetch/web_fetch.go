// Package web_fetch fetches a page over HTTP and extracts its readable main
// content. The research stage uses it to upgrade snippet-only search hits to
// full story text; failures are best-effort and callers keep the snippet.
package web_fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const (
	DefaultTimeout  = 15 * time.Second
	MaxCharsDefault = 20000
	maxBodyBytes    = 2 << 20
)

// Result is the extracted article content of one page.
type Result struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Byline      string `json:"byline"`
	PublishedAt string `json:"published_at"`
	Text        string `json:"text"`
}

// WebFetcher retrieves readable text for a URL.
type WebFetcher interface {
	Exec(ctx context.Context, url string) (Result, error)
}

// Fetch implements WebFetcher with net/http and readability extraction.
type Fetch struct {
	Timeout   time.Duration
	MaxChars  int
	UserAgent string
	client    *http.Client
}

func NewFetcher(timeout time.Duration, maxChars int, userAgent string) *Fetch {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = MaxCharsDefault
	}
	return &Fetch{
		Timeout:   timeout,
		MaxChars:  maxChars,
		UserAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

func (f *Fetch) Exec(ctx context.Context, link string) (Result, error) {
	u, err := nurl.Parse(link)
	if err != nil {
		return Result{}, fmt.Errorf("parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return Result{}, err
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("fetch status %d", resp.StatusCode)
	}

	html, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{}, err
	}

	article, err := readability.FromReader(strings.NewReader(string(html)), u)
	if err != nil {
		return Result{}, fmt.Errorf("readability: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > f.MaxChars {
		text = text[:f.MaxChars]
	}

	out := Result{
		URL:    link,
		Title:  article.Title,
		Byline: article.Byline,
		Text:   text,
	}
	if article.PublishedTime != nil {
		out.PublishedAt = article.PublishedTime.Format(time.RFC3339)
	}
	return out, nil
}
