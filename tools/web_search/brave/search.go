package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/careershift/careershift/tools/web_search/models"
	"github.com/careershift/careershift/utils"
)

const braveAPIURL = "https://api.search.brave.com/res/v1/web/search"

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
		baseURL: braveAPIURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// SetBaseURL overrides the API endpoint, mainly for tests and proxies.
func (s *Search) SetBaseURL(url string) { s.baseURL = url }

func (s *Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://api.search.brave.com/app/documentation/web-search
	url := fmt.Sprintf("%s?q=%s&count=%d", s.baseURL, utils.UrlQuery(q), k)
	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.apiKey)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("brave status %d: %s", resp.StatusCode, string(b))
	}
	var raw struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
				Age     string `json:"age"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	var out []models.Result
	for i, r := range raw.Web.Results {
		if i >= k {
			break
		}
		out = append(out, models.Result{Title: r.Title, URL: r.URL, Snippet: r.Snippet, Date: r.Age})
	}
	return out, nil
}
