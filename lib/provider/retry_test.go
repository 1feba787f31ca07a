// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/wardenhq/warden/lib/clock"
)

func retryConfig(clk clock.Clock) RetryConfig {
	return RetryConfig{
		Clock:  clk,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), retryConfig(clock.Fake(time.Unix(0, 0))), "get-role", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryRecoversFromThrottling(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Retry(context.Background(), retryConfig(clk), "put-role-policy", func() error {
			calls++
			if calls < 3 {
				return &ThrottlingError{Op: "put-role-policy", Err: errors.New("rate exceeded")}
			}
			return nil
		})
	}()

	// The backoff before the second attempt is one base delay, the
	// one before the third is two.
	clk.BlockUntil(1)
	clk.Advance(time.Second)
	clk.BlockUntil(1)
	clk.Advance(2 * time.Second)

	if err := <-done; err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryPermanentErrorReturnsImmediately(t *testing.T) {
	permanent := &PermissionError{Op: "delete-role", Err: errors.New("access denied")}
	calls := 0
	err := Retry(context.Background(), retryConfig(clock.Fake(time.Unix(0, 0))), "delete-role", func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("Retry error = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	cfg := retryConfig(clk)
	cfg.Attempts = 3

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Retry(context.Background(), cfg, "list-attached-policies", func() error {
			calls++
			return &ThrottlingError{Op: "list-attached-policies", Err: fmt.Errorf("attempt %d", calls)}
		})
	}()

	clk.BlockUntil(1)
	clk.Advance(time.Second)
	clk.BlockUntil(1)
	clk.Advance(2 * time.Second)

	err := <-done
	if err == nil {
		t.Fatal("Retry succeeded, want exhaustion error")
	}
	var throttled *ThrottlingError
	if !errors.As(err, &throttled) {
		t.Fatalf("Retry error = %v, want ThrottlingError", err)
	}
	if got, want := throttled.Err.Error(), "attempt 3"; got != want {
		t.Errorf("final error = %q, want %q", got, want)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryContextCancelledDuringBackoff(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Retry(ctx, retryConfig(clk), "get-role", func() error {
			return &ThrottlingError{Op: "get-role", Err: errors.New("rate exceeded")}
		})
	}()

	// Wait for the goroutine to block on the first backoff, then
	// cancel instead of advancing the clock.
	clk.BlockUntil(1)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Retry error = %v, want context.Canceled", err)
	}
}
