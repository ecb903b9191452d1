package ai

import (
	"context"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/repolens/repolens/internal/metrics"
)

// OpenAIClassifier is a Classifier backed by any OpenAI-compatible chat
// completions endpoint. It requests JSON-object output.
type OpenAIClassifier struct {
	client    *openai.Client
	model     string
	maxTokens int
	retrier   *Retrier
	logger    *zap.Logger
}

var _ Classifier = (*OpenAIClassifier)(nil)

// NewOpenAIClassifier creates an OpenAI-compatible classifier
func NewOpenAIClassifier(cfg *Config) (*OpenAIClassifier, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel(ProviderOpenAI)
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 && retry.Timeout == 0 {
		retry = DefaultRetryConfig()
	}
	if err := retry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenAIClassifier{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     model,
		maxTokens: maxTokens,
		retrier:   NewRetrier(retry, logger),
		logger:    logger.Named("openai"),
	}, nil
}

// Complete implements Classifier
func (c *OpenAIClassifier) Complete(ctx context.Context, operation, prompt string) (string, error) {
	start := time.Now()

	var content string
	err := c.retrier.Do(ctx, operation, func(attemptCtx context.Context) error {
		resp, apiErr := c.client.CreateChatCompletion(attemptCtx, openai.ChatCompletionRequest{
			Model:     c.model,
			MaxTokens: c.maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if apiErr != nil {
			return apiErr
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty completion response")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		metrics.ClassifierRequestsTotal.WithLabelValues(ProviderOpenAI, operation, "error").Inc()
		return "", fmt.Errorf("openai API call failed: %w", err)
	}

	metrics.ClassifierRequestsTotal.WithLabelValues(ProviderOpenAI, operation, "success").Inc()
	metrics.ClassifierRequestDuration.WithLabelValues(ProviderOpenAI, operation).Observe(duration.Seconds())
	c.logger.Debug("classifier call",
		zap.String("operation", operation),
		zap.Duration("duration", duration))

	return content, nil
}

// NewClassifier builds the classifier selected by cfg.Provider
func NewClassifier(cfg *Config) (Classifier, error) {
	switch cfg.Provider {
	case "", ProviderAnthropic:
		s, err := NewSupervisor(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case ProviderOpenAI:
		c, err := NewOpenAIClassifier(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
}

// HealthCheck reports an error while the circuit breaker is open
func (c *OpenAIClassifier) HealthCheck(context.Context) error {
	if b := c.retrier.Breaker(); b != nil && b.State() == CircuitOpen {
		return fmt.Errorf("classifier unavailable: %w", ErrCircuitOpen)
	}
	return nil
}
