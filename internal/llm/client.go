// Package llm wraps the text-rewrite providers behind one client interface
// and carries the prompt templates for every rewrite flavor the pipeline
// requests.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Request is one rewrite call. Model, MaxTokens, and Temperature override the
// client defaults when set.
type Request struct {
	System      string
	User        string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Client issues a single rewrite against a provider.
type Client interface {
	Rewrite(ctx context.Context, req Request) (string, error)
}

// Options configures the provider factory.
type Options struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}

// New builds the configured provider client. Provider defaults to gemini,
// matching the configuration file convention.
func New(ctx context.Context, opts Options) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = "gemini"
	}
	switch provider {
	case "gemini":
		return NewGeminiClient(ctx, opts)
	case "openai":
		return NewOpenAIClient(opts), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", opts.Provider)
	}
}

// IsRateLimited reports whether an error looks like a rate-limit response
// worth retrying with backoff. Non-rate-limit errors fail immediately.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate", "429", "too many requests", "overloaded", "resource_exhausted"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// CleanOutput strips code fences and surrounding whitespace from a model
// response.
func CleanOutput(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			text = text[idx+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}
