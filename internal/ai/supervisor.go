package ai

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/repolens/repolens/internal/metrics"
)

// Supervisor is the Anthropic-backed Classifier.
type Supervisor struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	retrier   *Retrier
	logger    *zap.Logger
}

// Compile-time check that Supervisor implements Classifier
var _ Classifier = (*Supervisor)(nil)

// Config holds classifier client configuration
type Config struct {
	Provider  string      `yaml:"provider"`   // anthropic (default) or openai
	APIKey    string      `yaml:"api_key"`    // Falls back to ANTHROPIC_API_KEY / OPENAI_API_KEY
	BaseURL   string      `yaml:"base_url"`   // Optional endpoint override
	Model     string      `yaml:"model"`      // Empty = DefaultModel(provider)
	MaxTokens int         `yaml:"max_tokens"` // Default: 1024
	Retry     RetryConfig `yaml:"retry"`
	Logger    *zap.Logger `yaml:"-"`
}

// NewSupervisor creates an Anthropic classifier
func NewSupervisor(cfg *Config) (*Supervisor, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel(ProviderAnthropic)
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

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	return &Supervisor{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
		retrier:   NewRetrier(retry, logger),
		logger:    logger.Named("anthropic"),
	}, nil
}

// Model returns the model name used for completions
func (s *Supervisor) Model() string {
	return s.model
}

// Complete sends prompt as a single user message and returns the
// concatenated text blocks of the reply.
func (s *Supervisor) Complete(ctx context.Context, operation, prompt string) (string, error) {
	start := time.Now()

	var response *anthropic.Message
	err := s.retrier.Do(ctx, operation, func(attemptCtx context.Context) error {
		resp, apiErr := s.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(s.model),
			MaxTokens: int64(s.maxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		metrics.ClassifierRequestsTotal.WithLabelValues(ProviderAnthropic, operation, "error").Inc()
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	metrics.ClassifierRequestsTotal.WithLabelValues(ProviderAnthropic, operation, "success").Inc()
	metrics.ClassifierRequestDuration.WithLabelValues(ProviderAnthropic, operation).Observe(duration.Seconds())
	s.logger.Debug("classifier call",
		zap.String("operation", operation),
		zap.Int64("input_tokens", response.Usage.InputTokens),
		zap.Int64("output_tokens", response.Usage.OutputTokens),
		zap.Duration("duration", duration))

	return text.String(), nil
}

// HealthCheck reports an error while the circuit breaker is open
func (s *Supervisor) HealthCheck(context.Context) error {
	if b := s.retrier.Breaker(); b != nil && b.State() == CircuitOpen {
		return fmt.Errorf("classifier unavailable: %w", ErrCircuitOpen)
	}
	return nil
}
