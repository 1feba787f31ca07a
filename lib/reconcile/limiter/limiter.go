// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package limiter bounds concurrent provider calls per operation
// class. Live-state reads and mutating writes draw from separate
// pools so a burst of fetches cannot starve applies, and the other
// way around.
package limiter

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Pool size bounds. Provider rate limits make anything above MaxLimit
// counterproductive; below MinLimit a large fleet serializes.
const (
	MinLimit = 5
	MaxLimit = 50
)

// Default pool sizes.
const (
	DefaultReads  = 20
	DefaultWrites = 10
)

// Limiter is a pair of weighted semaphores, one per operation class.
// Safe for concurrent use by multiple goroutines.
type Limiter struct {
	reads  *semaphore.Weighted
	writes *semaphore.Weighted
}

// New returns a Limiter with the given pool sizes. Zero selects the
// default for that class; any other value outside
// [MinLimit, MaxLimit] is an error.
func New(reads, writes int64) (*Limiter, error) {
	if reads == 0 {
		reads = DefaultReads
	}
	if writes == 0 {
		writes = DefaultWrites
	}
	if reads < MinLimit || reads > MaxLimit {
		return nil, fmt.Errorf("limiter: read limit %d outside %d-%d", reads, MinLimit, MaxLimit)
	}
	if writes < MinLimit || writes > MaxLimit {
		return nil, fmt.Errorf("limiter: write limit %d outside %d-%d", writes, MinLimit, MaxLimit)
	}
	return &Limiter{
		reads:  semaphore.NewWeighted(reads),
		writes: semaphore.NewWeighted(writes),
	}, nil
}

// Read runs fn holding a read slot, blocking until a slot frees up or
// ctx is done. A context error is returned without running fn.
func (l *Limiter) Read(ctx context.Context, fn func() error) error {
	return run(ctx, l.reads, fn)
}

// Write runs fn holding a write slot.
func (l *Limiter) Write(ctx context.Context, fn func() error) error {
	return run(ctx, l.writes, fn)
}

func run(ctx context.Context, sem *semaphore.Weighted, fn func() error) error {
	if err := sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer sem.Release(1)
	return fn()
}
