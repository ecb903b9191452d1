// Package embedding maps document text to vectors through an external
// provider and fans embedding calls out across a corpus.
package embedding

import (
	"context"
	"errors"
	"unicode/utf8"
)

// Provider maps text to a fixed-dimension vector. Calls may fail independently.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, text string) ([]float32, error)

// Embed implements Provider
func (f ProviderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

var (
	// ErrEmptyText is returned for documents with no title or body
	ErrEmptyText = errors.New("no text to embed")
	// ErrProvider wraps every failure reported by a remote embedding API
	ErrProvider = errors.New("embedding provider error")
)

// DefaultMaxInputChars keeps requests under typical embedding input limits.
const DefaultMaxInputChars = 8000

// clip cuts text to at most maxBytes on a UTF-8 boundary.
func clip(text string, maxBytes int) string {
	if maxBytes <= 0 || len(text) <= maxBytes {
		return text
	}
	cut := text[:maxBytes]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
