package provider

import (
	"context"
	"errors"
	"os"
	"time"

	openai_provider "github.com/careershift/careershift/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
)

// Provider is the completion boundary the pipeline stages call. The returned
// text is free-form: it may be malformed, truncated, or not JSON at all, and
// callers must never assume well-formed output.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Options tunes the completion client.
type Options struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// NewProvider creates a completion client from environment defaults.
func NewProvider(client Client) (Provider, error) {
	return NewProviderWithOptions(client, Options{})
}

// NewProviderWithOptions creates a completion client for the given provider.
// A missing API key falls back to the conventional environment variable.
func NewProviderWithOptions(client Client, opts Options) (Provider, error) {
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.2
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 4096
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	switch client {
	case OpenAI:
		if opts.APIKey == "" {
			opts.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if opts.APIKey == "" {
			return nil, errors.New("OPENAI_API_KEY not set")
		}
		return openai_provider.NewClient(opts.APIKey, opts.Model, opts.Temperature, opts.MaxTokens, opts.Timeout), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
