// Package ai provides the remote classifier clients consulted by the
// adjudicator: an Anthropic-backed Supervisor and an OpenAI-compatible chat
// classifier, both wrapped in retry, backoff and a circuit breaker.
package ai

import (
	"context"
	"os"
)

// Classifier sends a prompt to a remote model and returns its raw text reply.
// The reply is expected to contain a JSON object but is not parsed here.
type Classifier interface {
	Complete(ctx context.Context, operation, prompt string) (string, error)
}

// Model defaults. Classification prompts are short and structured, so the
// cost-efficient tier is the default.
const (
	ModelHaiku  = "claude-3-5-haiku-20241022"
	ModelSonnet = "claude-sonnet-4-5-20250929"

	ModelOpenAIDefault = "gpt-4o-mini"
)

// Provider names accepted in configuration
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// DefaultModel returns the classifier model for provider, honoring
// REPOLENS_CLASSIFIER_MODEL.
func DefaultModel(provider string) string {
	if model := os.Getenv("REPOLENS_CLASSIFIER_MODEL"); model != "" {
		return model
	}
	if provider == ProviderOpenAI {
		return ModelOpenAIDefault
	}
	return ModelHaiku
}
