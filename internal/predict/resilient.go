package predict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"
)

// ResilienceConfig holds the resilience patterns applied to a client
type ResilienceConfig struct {
	// EnableCircuitBreaker enables circuit breaker pattern
	EnableCircuitBreaker bool

	// EnableRetry enables retry with backoff on 429 and 5xx
	EnableRetry bool

	// EnableBulkhead enables concurrency limiting
	EnableBulkhead bool

	// EnableRateLimit enables rate limiting
	EnableRateLimit bool

	// MaxConcurrent for bulkhead (default: 4)
	MaxConcurrent int

	// RatePerSecond for rate limiting (default: 10)
	RatePerSecond int

	// MaxAttempts for retry, including the first call (default: 3)
	MaxAttempts int

	// RetryDelay is the first backoff delay (default: 250ms)
	RetryDelay time.Duration

	// OpenTimeout is how long the breaker stays open (default: 30s)
	OpenTimeout time.Duration

	// Logger for resilience events
	Logger *slog.Logger
}

// DefaultResilienceConfig returns the defaults for prediction services
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		EnableCircuitBreaker: true,
		EnableRetry:          true,
		EnableBulkhead:       true,
		EnableRateLimit:      true,
		MaxConcurrent:        4,
		RatePerSecond:        10,
		MaxAttempts:          3,
		RetryDelay:           250 * time.Millisecond,
		OpenTimeout:          30 * time.Second,
	}
}

// breakerThreshold is the number of consecutive failures that opens the circuit
const breakerThreshold = 3

// resilience runs raw service calls through fortify
type resilience struct {
	name           string
	circuitBreaker circuitbreaker.CircuitBreaker[[]byte]
	retrier        retry.Retry[[]byte]
	bulkhead       bulkhead.Bulkhead[[]byte]
	rateLimit      ratelimit.RateLimiter
	logger         *slog.Logger
}

func newResilience(name string, cfg ResilienceConfig) *resilience {
	r := &resilience{name: name, logger: cfg.Logger}

	if cfg.EnableCircuitBreaker {
		openTimeout := cfg.OpenTimeout
		if openTimeout <= 0 {
			openTimeout = 30 * time.Second
		}
		r.circuitBreaker = circuitbreaker.New[[]byte](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    10 * time.Second,
			Timeout:     openTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerThreshold
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				if r.logger != nil {
					r.logger.Warn("circuit breaker state change",
						"service", name,
						"from", from.String(),
						"to", to.String())
				}
			},
		})
	}

	if cfg.EnableRetry {
		attempts := cfg.MaxAttempts
		if attempts <= 0 {
			attempts = 3
		}
		delay := cfg.RetryDelay
		if delay <= 0 {
			delay = 250 * time.Millisecond
		}
		r.retrier = retry.New[[]byte](retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  delay,
			MaxDelay:      5 * time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable:   isRetryable,
		})
	}

	if cfg.EnableBulkhead {
		maxConcurrent := cfg.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = 4
		}
		r.bulkhead = bulkhead.New[[]byte](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
			MaxQueue:      maxConcurrent * 4,
			QueueTimeout:  10 * time.Second,
		})
	}

	if cfg.EnableRateLimit {
		rate := cfg.RatePerSecond
		if rate <= 0 {
			rate = 10
		}
		r.rateLimit = ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    rate * 2,
			Interval: time.Second,
		})
	}

	return r
}

// execute runs op with rate limiting, bulkhead, circuit breaker and retry
func (r *resilience) execute(ctx context.Context, op func(context.Context) ([]byte, error)) ([]byte, error) {
	if r.rateLimit != nil {
		if !r.rateLimit.Allow(ctx, r.name) {
			return nil, fmt.Errorf("rate limit exceeded for service %s", r.name)
		}
	}

	operation := op
	if r.bulkhead != nil {
		operation = func(ctx context.Context) ([]byte, error) {
			return r.bulkhead.Execute(ctx, op)
		}
	}

	if r.circuitBreaker != nil && r.retrier != nil {
		return r.circuitBreaker.Execute(ctx, func(ctx context.Context) ([]byte, error) {
			return r.retrier.Do(ctx, operation)
		})
	}
	if r.circuitBreaker != nil {
		return r.circuitBreaker.Execute(ctx, operation)
	}
	if r.retrier != nil {
		return r.retrier.Do(ctx, operation)
	}
	return operation(ctx)
}

func (r *resilience) close() error {
	if r.rateLimit != nil {
		return r.rateLimit.Close()
	}
	return nil
}

// isRetryable reports whether err is a status the service may recover from
func isRetryable(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
