package quality

import (
	"fmt"
	"time"

	"github.com/repolens/repolens/internal/envutil"
	"github.com/repolens/repolens/internal/scheduler"
)

// Config holds configuration for the quality triage engine
type Config struct {
	// Scheduler bounds classifier calls. Triage classifies every document,
	// so calls are serialized and spaced to stay under provider rate limits.
	// Default: 1 concurrent call, 1s between calls
	Scheduler scheduler.Config `yaml:"scheduler"`

	// Workers is the number of documents waiting on the scheduler at once
	// Default: 4
	Workers int `yaml:"workers"`

	// BodyChars truncates the body sent to the classifier
	// Default: 2000
	BodyChars int `yaml:"body_chars"`
}

// DefaultConfig returns the default quality triage configuration
func DefaultConfig() Config {
	return Config{
		Scheduler: scheduler.Config{MaxConcurrent: 1, MinInterval: time.Second},
		Workers:   4,
		BodyChars: 2000,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive (got %d)", c.Workers)
	}
	if c.BodyChars < 100 {
		return fmt.Errorf("body_chars too small (got %d, min 100)", c.BodyChars)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf("Config{MaxConcurrent: %d, MinInterval: %v, Workers: %d, BodyChars: %d}",
		c.Scheduler.MaxConcurrent, c.Scheduler.MinInterval, c.Workers, c.BodyChars)
}

// ConfigFromEnv creates a Config from environment variables, falling back to defaults
//
// Environment variables:
//   - REPOLENS_QUALITY_MAX_CONCURRENT: Concurrent classifier calls (default: 1)
//   - REPOLENS_QUALITY_MIN_INTERVAL_MS: Spacing between classifier calls (default: 1000)
//   - REPOLENS_QUALITY_WORKERS: Documents in flight (default: 4)
//   - REPOLENS_QUALITY_BODY_CHARS: Body truncation for prompts (default: 2000)
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

// ApplyEnv overlays REPOLENS_QUALITY_* variables on cfg without validating.
func ApplyEnv(cfg *Config) error {
	if err := envutil.Int("REPOLENS_QUALITY_MAX_CONCURRENT", &cfg.Scheduler.MaxConcurrent); err != nil {
		return err
	}
	if err := envutil.Duration("REPOLENS_QUALITY_MIN_INTERVAL_MS", &cfg.Scheduler.MinInterval, time.Millisecond); err != nil {
		return err
	}
	if err := envutil.Int("REPOLENS_QUALITY_WORKERS", &cfg.Workers); err != nil {
		return err
	}
	return envutil.Int("REPOLENS_QUALITY_BODY_CHARS", &cfg.BodyChars)
}
