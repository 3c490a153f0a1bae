package web_search

import (
	"context"
	"time"

	"github.com/careershift/careershift/tools/web_search/brave"
	"github.com/careershift/careershift/tools/web_search/models"
	"github.com/careershift/careershift/tools/web_search/serper"
)

// WebSearcher is the search boundary the research stage calls. It may return
// zero results; transient provider failures surface as plain errors.
type WebSearcher interface {
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

var ErrUnsupportedProvider = &Error{"unsupported provider"}

// NewWebSearcher builds a provider adapter. timeout bounds each search call;
// zero picks the adapter's default.
func NewWebSearcher(provider Provider, apiKey string, timeout time.Duration) (WebSearcher, error) {
	switch provider {
	case SerperProvider:
		return serper.New(apiKey, timeout), nil
	case BraveProvider:
		return brave.New(apiKey, timeout), nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
