// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianForge/services/builder/datatypes"
)

// RetryConfig configures retry behavior with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// InitialBackoff is the initial wait duration before first retry.
	// Default: 1s
	InitialBackoff time.Duration

	// MaxBackoff is the maximum wait duration between retries.
	// Default: 30s
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier for exponential backoff.
	// Default: 2.0
	BackoffFactor float64

	// JitterFactor is the maximum jitter as a fraction of backoff (0-1).
	// Adds randomness to prevent thundering herd. Default: 0.2
	JitterFactor float64
}

// DefaultRetryConfig returns sensible defaults for retry behavior.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		JitterFactor:   0.2,
	}
}

// ErrInvalidRetryConfig is returned by Validate for out-of-range fields.
var ErrInvalidRetryConfig = errors.New("invalid retry configuration")

// Validate checks if the retry configuration is valid.
func (c RetryConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return ErrInvalidRetryConfig
	}
	if c.InitialBackoff <= 0 {
		return ErrInvalidRetryConfig
	}
	if c.MaxBackoff < c.InitialBackoff {
		return ErrInvalidRetryConfig
	}
	if c.BackoffFactor < 1.0 {
		return ErrInvalidRetryConfig
	}
	return nil
}

// RetryableFunc is a function that can be retried. It should return nil on
// success. IsRetryable decides whether an error triggers another attempt.
type RetryableFunc func(ctx context.Context, attempt int) error

// Retry executes the given function with exponential backoff retry.
//
// Inputs:
//   - ctx: Context for cancellation. Must not be nil.
//   - config: Retry configuration.
//   - fn: The function to execute and potentially retry.
//
// Outputs:
//   - int: The number of attempts made.
//   - error: The last error if all attempts failed, nil on success.
//
// Non-retryable errors cause immediate return without further attempts.
func Retry(ctx context.Context, config RetryConfig, fn RetryableFunc) (int, error) {
	backoff := config.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt, err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return attempt, err
		}
		if attempt == config.MaxAttempts {
			return attempt, lastErr
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(jitteredBackoff(backoff, config.JitterFactor)):
		}

		backoff = nextBackoff(backoff, config.BackoffFactor, config.MaxBackoff)
	}

	return config.MaxAttempts, lastErr
}

// jitteredBackoff spreads the wait over [base*(1-jitter), base*(1+jitter)].
func jitteredBackoff(base time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return base
	}
	jitter := (rand.Float64()*2 - 1) * jitterFactor
	return time.Duration(float64(base) * (1.0 + jitter))
}

// nextBackoff calculates the next backoff value, capped at max.
func nextBackoff(current time.Duration, factor float64, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * factor)
	if next > max {
		return max
	}
	return next
}

// RetryingClient wraps a backend with bounded retry and request pacing.
//
// # Description
//
// The retry responsibility for generation lives here, not in callers: the
// orchestrator and verifier each issue a single Chat call and either get a
// reply or an exhaustion error. A token-bucket limiter paces requests so a
// deep recursion does not hammer the backend.
type RetryingClient struct {
	inner   Client
	config  RetryConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRetryingClient wraps inner with the given retry budget.
//
// requestsPerSecond <= 0 disables pacing.
func NewRetryingClient(inner Client, config RetryConfig, requestsPerSecond float64, logger *slog.Logger) *RetryingClient {
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &RetryingClient{
		inner:   inner,
		config:  config,
		limiter: limiter,
		logger:  logger,
	}
}

// Chat implements Client. A persistent backend failure surfaces as
// ErrGenerationExhausted wrapping the last attempt's error.
func (c *RetryingClient) Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	var reply string
	attempts, err := Retry(ctx, c.config, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			c.logger.Warn("retrying generation call",
				"backend", c.inner.Name(),
				"attempt", attempt,
				"max_attempts", c.config.MaxAttempts)
		}
		var chatErr error
		reply, chatErr = c.inner.Chat(ctx, messages, params)
		return chatErr
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w after %d attempts: %v", ErrGenerationExhausted, attempts, err)
	}
	return reply, nil
}

// Name implements Client.
func (c *RetryingClient) Name() string { return c.inner.Name() }

// Model implements Client.
func (c *RetryingClient) Model() string { return c.inner.Model() }
