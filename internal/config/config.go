// Package config loads the repolens configuration: a YAML file with ${VAR}
// expansion, overlaid with REPOLENS_* environment variables, on top of
// per-package defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/repolens/repolens/internal/ai"
	"github.com/repolens/repolens/internal/corpus"
	"github.com/repolens/repolens/internal/deduplication"
	"github.com/repolens/repolens/internal/embedding"
	"github.com/repolens/repolens/internal/envutil"
	"github.com/repolens/repolens/internal/logger"
	"github.com/repolens/repolens/internal/quality"
)

// Config holds the full repolens configuration.
type Config struct {
	HTTP       HTTPConfig             `yaml:"http"`
	Logging    LoggingConfig          `yaml:"logging"`
	GitHub     corpus.GitHubConfig    `yaml:"github"`
	Embedding  embedding.OpenAIConfig `yaml:"embedding"`
	Classifier ClassifierConfig       `yaml:"classifier"`
	Duplicates deduplication.Config   `yaml:"duplicates"`
	Quality    quality.Config         `yaml:"quality"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port              int `yaml:"port"`
	ReadTimeoutSec    int `yaml:"read_timeout_sec"`
	WriteTimeoutSec   int `yaml:"write_timeout_sec"`
	ShutdownSec       int `yaml:"shutdown_timeout_sec"`
	RequestTimeoutSec int `yaml:"request_timeout_sec"` // Deadline for one analysis run

	// APIKeys are accepted as bearer tokens on /v1 routes. Empty disables auth.
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// ClassifierConfig selects and configures the remote classifier.
type ClassifierConfig struct {
	ai.Config `yaml:",inline"`

	// Disabled skips the classifier entirely; every verdict is a fallback
	Disabled bool `yaml:"disabled"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:              8080,
			ReadTimeoutSec:    10,
			WriteTimeoutSec:   300,
			ShutdownSec:       10,
			RequestTimeoutSec: 240,
		},
		Logging: LoggingConfig{Level: "info", Format: logger.FormatConsole},
		GitHub:  corpus.GitHubConfig{PerPage: 100},
		Embedding: embedding.OpenAIConfig{
			Model:    embedding.DefaultModel,
			Provider: "openai",
		},
		Classifier: ClassifierConfig{
			Config: ai.Config{
				Provider:  ai.ProviderAnthropic,
				MaxTokens: 1024,
				Retry:     ai.DefaultRetryConfig(),
			},
		},
		Duplicates: deduplication.DefaultConfig(),
		Quality:    quality.DefaultConfig(),
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}

		// Substitute env variables of the form ${VAR}
		data = expandEnvVars(data)

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables on the configuration.
//
// Environment variables:
//   - GITHUB_TOKEN / REPOLENS_GITHUB_TOKEN: GitHub API token
//   - REPOLENS_HTTP_PORT: HTTP listen port
//   - REPOLENS_API_KEYS: comma-separated bearer tokens for the HTTP API
//   - REPOLENS_LOG_LEVEL, REPOLENS_LOG_FORMAT: logging
//   - REPOLENS_EMBEDDING_MODEL, REPOLENS_EMBEDDING_BASE_URL: embedding provider
//   - REPOLENS_CLASSIFIER_PROVIDER, REPOLENS_CLASSIFIER_MODEL: classifier
//   - REPOLENS_CLASSIFIER_DISABLED: skip the classifier
//   - REPOLENS_DEDUP_*, REPOLENS_QUALITY_*: engine settings
func (c *Config) ApplyEnv() error {
	envutil.String("GITHUB_TOKEN", &c.GitHub.Token)
	envutil.String("REPOLENS_GITHUB_TOKEN", &c.GitHub.Token)
	if err := envutil.Int("REPOLENS_HTTP_PORT", &c.HTTP.Port); err != nil {
		return err
	}
	if keys := os.Getenv("REPOLENS_API_KEYS"); keys != "" {
		c.HTTP.APIKeys = strings.Split(keys, ",")
	}
	envutil.String("REPOLENS_LOG_LEVEL", &c.Logging.Level)
	envutil.String("REPOLENS_LOG_FORMAT", &c.Logging.Format)
	envutil.String("REPOLENS_EMBEDDING_MODEL", &c.Embedding.Model)
	envutil.String("REPOLENS_EMBEDDING_BASE_URL", &c.Embedding.BaseURL)
	envutil.String("REPOLENS_CLASSIFIER_PROVIDER", &c.Classifier.Provider)
	envutil.String("REPOLENS_CLASSIFIER_MODEL", &c.Classifier.Model)
	if err := envutil.Bool("REPOLENS_CLASSIFIER_DISABLED", &c.Classifier.Disabled); err != nil {
		return err
	}
	if err := deduplication.ApplyEnv(&c.Duplicates); err != nil {
		return err
	}
	return quality.ApplyEnv(&c.Quality)
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.RequestTimeoutSec < 0 {
		return fmt.Errorf("http.request_timeout_sec cannot be negative, got %d", c.HTTP.RequestTimeoutSec)
	}
	switch c.Logging.Format {
	case "", logger.FormatConsole, logger.FormatJSON:
	default:
		return fmt.Errorf("logging.format must be %q or %q, got %q", logger.FormatConsole, logger.FormatJSON, c.Logging.Format)
	}
	switch strings.ToLower(c.Classifier.Provider) {
	case "", ai.ProviderAnthropic, ai.ProviderOpenAI:
	default:
		return fmt.Errorf("classifier.provider must be %q or %q, got %q", ai.ProviderAnthropic, ai.ProviderOpenAI, c.Classifier.Provider)
	}
	if !c.Classifier.Disabled {
		if err := c.Classifier.Retry.Validate(); err != nil {
			return fmt.Errorf("classifier.retry: %w", err)
		}
	}
	if err := c.Duplicates.Validate(); err != nil {
		return fmt.Errorf("duplicates: %w", err)
	}
	if err := c.Quality.Validate(); err != nil {
		return fmt.Errorf("quality: %w", err)
	}
	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
