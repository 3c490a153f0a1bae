package serper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/careershift/careershift/tools/web_search/models"
	"github.com/careershift/careershift/utils"
)

const serperAPIURL = "https://google.serper.dev/search"

// DefaultTimeout bounds a single search call when no timeout is configured.
const DefaultTimeout = 15 * time.Second

type Search struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func New(apiKey string, timeout time.Duration) *Search {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Search{
		apiKey:  apiKey,
		baseURL: serperAPIURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// SetBaseURL overrides the API endpoint, mainly for tests and proxies.
func (s *Search) SetBaseURL(url string) { s.baseURL = url }

func (s *Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://serper.dev/ docs
	payload := map[string]any{"q": q, "num": k}
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, "POST", s.baseURL, strings.NewReader(string(body)))
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("serper status %d: %s", resp.StatusCode, string(b))
	}
	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	var out []models.Result
	if items, ok := raw["organic"].([]any); ok {
		for i, it := range items {
			if i >= k {
				break
			}
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, models.Result{
				Title:   utils.Str(m["title"]),
				URL:     utils.Str(m["link"]),
				Snippet: utils.Str(m["snippet"]),
				Date:    utils.Str(m["date"]),
			})
		}
	}
	return out, nil
}
