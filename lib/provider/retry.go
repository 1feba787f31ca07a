// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/wardenhq/warden/lib/clock"
)

// DefaultRetryAttempts bounds Retry when RetryConfig.Attempts is zero.
// Ten attempts with linear backoff rides out the sustained throttling
// bursts identity APIs produce when many accounts reconcile at once.
const DefaultRetryAttempts = 10

// DefaultRetryBaseDelay is the backoff unit when RetryConfig.BaseDelay
// is zero. The wait before attempt n+1 is n times this.
const DefaultRetryBaseDelay = time.Second

// RetryConfig configures Retry.
type RetryConfig struct {
	// Attempts is the maximum number of calls. Zero means
	// DefaultRetryAttempts.
	Attempts int

	// BaseDelay is the linear backoff unit. Zero means
	// DefaultRetryBaseDelay.
	BaseDelay time.Duration

	// Clock supplies the backoff timer. If nil, the real clock is
	// used.
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Retry invokes fn until it succeeds, returns a permanent error, the
// attempt budget runs out, or the context is cancelled. Between
// attempts it backs off linearly: base delay after the first failure,
// twice that after the second, and so on. op names the provider
// operation in log output.
//
// Retry belongs in adapters, wrapped around individual provider calls.
// The engine never retries; by the time an error reaches it, the error
// is either permanent or the budget is spent.
func Retry(ctx context.Context, cfg RetryConfig, op string, fn func() error) error {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultRetryBaseDelay
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clk.After(backoff):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !Retryable(err) {
			return err
		}

		logger.Warn("transient provider failure, retrying",
			"op", op,
			"attempt", attempt,
			"error", err,
		)
	}
	return lastErr
}
