package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

func breakerRetrier(failures int) *Retrier {
	cfg := fastRetryConfig()
	cfg.CircuitBreakerEnabled = true
	cfg.FailureThreshold = failures
	cfg.SuccessThreshold = 1
	cfg.OpenTimeout = time.Minute
	return NewRetrier(cfg, nil)
}

func TestHealthCheckFollowsBreaker(t *testing.T) {
	build := map[string]func(r *Retrier) healthChecker{
		"anthropic": func(r *Retrier) healthChecker { return &Supervisor{retrier: r} },
		"openai":    func(r *Retrier) healthChecker { return &OpenAIClassifier{retrier: r} },
	}

	for name, newChecker := range build {
		t.Run(name, func(t *testing.T) {
			r := breakerRetrier(2)
			c := newChecker(r)
			ctx := context.Background()

			assert.NoError(t, c.HealthCheck(ctx), "closed")

			r.Breaker().RecordFailure()
			r.Breaker().RecordFailure()
			err := c.HealthCheck(ctx)
			assert.ErrorIs(t, err, ErrCircuitOpen, "open")

			// once the open timeout elapses the breaker probes again
			r.Breaker().now = func() time.Time { return time.Now().Add(2 * time.Minute) }
			assert.NoError(t, r.Breaker().Allow())
			assert.Equal(t, CircuitHalfOpen, r.Breaker().State())
			assert.NoError(t, c.HealthCheck(ctx), "half-open")
		})
	}
}

func TestHealthCheckWithoutBreaker(t *testing.T) {
	cfg := fastRetryConfig()
	cfg.CircuitBreakerEnabled = false
	s := &Supervisor{retrier: NewRetrier(cfg, nil)}
	assert.NoError(t, s.HealthCheck(context.Background()))
}
