package deduplication

import (
	"fmt"
	"time"

	"github.com/repolens/repolens/internal/envutil"
	"github.com/repolens/repolens/internal/evidence"
	"github.com/repolens/repolens/internal/policy"
	"github.com/repolens/repolens/internal/scheduler"
	"github.com/repolens/repolens/internal/similarity"
)

// Config holds configuration for the duplicate detection engine
type Config struct {
	// Similarity controls candidate retrieval
	// Default: scores strictly above 0.6, at most 5 candidates per document
	Similarity similarity.Config `yaml:"similarity"`

	// Evidence holds the lexical and temporal thresholds used in justifications
	Evidence evidence.Thresholds `yaml:"evidence"`

	// Policy maps confidence to actions and shapes the fallback verdict
	// Default: >80 mark_duplicate, >60 review_required, fallback dampening 0.8
	Policy policy.Thresholds `yaml:"policy"`

	// Scheduler bounds classifier calls
	// Default: 3 concurrent calls, no spacing
	Scheduler scheduler.Config `yaml:"scheduler"`

	// EmbedConcurrency is the number of embedding calls in flight at once
	// Default: 8
	EmbedConcurrency int `yaml:"embed_concurrency"`

	// MaxInputChars clips the text sent to the embedding provider
	// Default: 8000
	MaxInputChars int `yaml:"max_input_chars"`

	// Workers is the number of documents processed concurrently after embedding
	// (retrieval, evidence, adjudication). Classifier calls are further
	// bounded by Scheduler.
	// Default: 16
	Workers int `yaml:"workers"`

	// PromptCandidates is how many candidates are described to the classifier
	// Default: 3
	PromptCandidates int `yaml:"prompt_candidates"`
}

// DefaultConfig returns the default duplicate detection configuration
func DefaultConfig() Config {
	return Config{
		Similarity:       similarity.DefaultConfig(),
		Evidence:         evidence.DefaultThresholds(),
		Policy:           policy.DefaultThresholds(),
		Scheduler:        scheduler.Config{MaxConcurrent: 3},
		EmbedConcurrency: 8,
		MaxInputChars:    8000,
		Workers:          16,
		PromptCandidates: 3,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if err := c.Similarity.Validate(); err != nil {
		return fmt.Errorf("similarity: %w", err)
	}
	if err := c.Evidence.Validate(); err != nil {
		return fmt.Errorf("evidence: %w", err)
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if c.EmbedConcurrency <= 0 {
		return fmt.Errorf("embed_concurrency must be positive (got %d)", c.EmbedConcurrency)
	}
	if c.EmbedConcurrency > 64 {
		return fmt.Errorf("embed_concurrency too large (got %d, max 64)", c.EmbedConcurrency)
	}
	if c.MaxInputChars < 100 {
		return fmt.Errorf("max_input_chars too small (got %d, min 100)", c.MaxInputChars)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive (got %d)", c.Workers)
	}
	if c.PromptCandidates <= 0 || c.PromptCandidates > c.Similarity.MaxCandidates {
		return fmt.Errorf("prompt_candidates must be between 1 and max_candidates (got %d)", c.PromptCandidates)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{MinScore: %.2f, MaxCandidates: %d, MarkAbove: %.0f, ReviewAbove: %.0f, "+
			"Dampening: %.2f, MaxConcurrent: %d, MinInterval: %v, EmbedConcurrency: %d, "+
			"MaxInputChars: %d, Workers: %d, PromptCandidates: %d}",
		c.Similarity.MinScore, c.Similarity.MaxCandidates, c.Policy.MarkDuplicateAbove, c.Policy.ReviewAbove,
		c.Policy.FallbackDampening, c.Scheduler.MaxConcurrent, c.Scheduler.MinInterval, c.EmbedConcurrency,
		c.MaxInputChars, c.Workers, c.PromptCandidates,
	)
}

// ConfigFromEnv creates a Config from environment variables, falling back to defaults
//
// Environment variables:
//   - REPOLENS_DEDUP_MIN_SCORE: Retrieval cutoff, exclusive (default: 0.6)
//   - REPOLENS_DEDUP_MAX_CANDIDATES: Candidates per document (default: 5)
//   - REPOLENS_DEDUP_MARK_ABOVE: Confidence above which to mark duplicate (default: 80)
//   - REPOLENS_DEDUP_REVIEW_ABOVE: Confidence above which to request review (default: 60)
//   - REPOLENS_DEDUP_FALLBACK_DAMPENING: Fallback confidence multiplier (default: 0.8)
//   - REPOLENS_DEDUP_MAX_CONCURRENT: Concurrent classifier calls (default: 3)
//   - REPOLENS_DEDUP_MIN_INTERVAL_MS: Spacing between classifier calls (default: 0)
//   - REPOLENS_DEDUP_EMBED_CONCURRENCY: Concurrent embedding calls (default: 8)
//   - REPOLENS_DEDUP_MAX_INPUT_CHARS: Embedding input clip (default: 8000)
//   - REPOLENS_DEDUP_WORKERS: Documents processed concurrently (default: 16)
//
// Returns an error if any environment variable has an invalid value.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays REPOLENS_DEDUP_* variables on cfg without validating.
func ApplyEnv(cfg *Config) error {
	floats := []struct {
		key  string
		dest *float64
	}{
		{"REPOLENS_DEDUP_MIN_SCORE", &cfg.Similarity.MinScore},
		{"REPOLENS_DEDUP_MARK_ABOVE", &cfg.Policy.MarkDuplicateAbove},
		{"REPOLENS_DEDUP_REVIEW_ABOVE", &cfg.Policy.ReviewAbove},
		{"REPOLENS_DEDUP_FALLBACK_DAMPENING", &cfg.Policy.FallbackDampening},
	}
	for _, f := range floats {
		if err := envutil.Float(f.key, f.dest); err != nil {
			return err
		}
	}

	ints := []struct {
		key  string
		dest *int
	}{
		{"REPOLENS_DEDUP_MAX_CANDIDATES", &cfg.Similarity.MaxCandidates},
		{"REPOLENS_DEDUP_MAX_CONCURRENT", &cfg.Scheduler.MaxConcurrent},
		{"REPOLENS_DEDUP_EMBED_CONCURRENCY", &cfg.EmbedConcurrency},
		{"REPOLENS_DEDUP_MAX_INPUT_CHARS", &cfg.MaxInputChars},
		{"REPOLENS_DEDUP_WORKERS", &cfg.Workers},
	}
	for _, i := range ints {
		if err := envutil.Int(i.key, i.dest); err != nil {
			return err
		}
	}

	return envutil.Duration("REPOLENS_DEDUP_MIN_INTERVAL_MS", &cfg.Scheduler.MinInterval, time.Millisecond)
}
