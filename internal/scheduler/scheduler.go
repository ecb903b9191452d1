// Package scheduler bounds how many remote calls run at once and how close
// together they may start. It replaces fixed sleeps between classifier calls.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config parameterizes a Scheduler
type Config struct {
	// MaxConcurrent is the number of calls allowed in flight at once
	MaxConcurrent int `yaml:"max_concurrent"`

	// MinInterval is the minimum spacing between call starts; 0 disables spacing
	MinInterval time.Duration `yaml:"min_interval"`
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive (got %d)", c.MaxConcurrent)
	}
	if c.MaxConcurrent > 64 {
		return fmt.Errorf("max_concurrent too large (got %d, max 64)", c.MaxConcurrent)
	}
	if c.MinInterval < 0 {
		return fmt.Errorf("min_interval cannot be negative (got %v)", c.MinInterval)
	}
	return nil
}

// Scheduler admits calls under a concurrency cap and a token-bucket spacing.
type Scheduler struct {
	cfg     Config
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// New creates a Scheduler
func New(cfg Config) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scheduler config: %w", err)
	}
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	return &Scheduler{
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// Config returns the scheduler's configuration
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Do waits for a slot and for the spacing interval, then runs fn. If ctx is
// done before fn can start, Do returns ctx's error without running fn.
func (s *Scheduler) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)

	if err := s.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return fn(ctx)
}
