// Package generate abstracts the generative-model backends used for field
// extraction. Backends take a prompt and return raw text; all parsing and
// validation of that text lives with the caller.
package generate

import (
	"context"
	"time"
)

// Client is a text-in, text-out generative backend.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options are shared generation knobs across backends.
type Options struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultOptions favors determinism: extraction wants the same answer for
// the same document.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.1,
		MaxTokens:   500,
		Timeout:     60 * time.Second,
	}
}
