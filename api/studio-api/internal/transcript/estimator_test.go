// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transcript

import (
	"testing"
	"time"

	"github.com/rapidaai/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("test-transcript"),
		commons.Level("debug"),
	)
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return logger
}

// fakeClock starts at a fixed instant and advances only when told to.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEstimator(t *testing.T) (*Estimator, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewEstimator(newTestLogger(t), WithClock(clock.Now)), clock
}

func TestDefaultRate(t *testing.T) {
	est, _ := newTestEstimator(t)
	if got := est.WordsPerMinute(); got != DefaultWordsPerMinute {
		t.Fatalf("expected default %d, got %d", DefaultWordsPerMinute, got)
	}
}

func TestNoUpdateWithinFirstSecond(t *testing.T) {
	est, clock := newTestEstimator(t)

	clock.Advance(500 * time.Millisecond)
	est.Observe("hello")
	if got := est.WordsPerMinute(); got != DefaultWordsPerMinute {
		t.Fatalf("estimate must be unchanged at 0.5s, got %d", got)
	}

	// Exactly one second is still inside the guard (elapsed must exceed 1.0).
	clock.Advance(500 * time.Millisecond)
	est.Observe("hello world")
	if got := est.WordsPerMinute(); got != DefaultWordsPerMinute {
		t.Fatalf("estimate must be unchanged at exactly 1.0s, got %d", got)
	}
}

func TestAverageRateAfterGuard(t *testing.T) {
	est, clock := newTestEstimator(t)

	clock.Advance(2 * time.Second)
	est.Observe("hello world foo")
	// round(3 words / 2.0s * 60) = 90
	if got := est.WordsPerMinute(); got != 90 {
		t.Fatalf("expected 90, got %d", got)
	}
}

func TestZeroWordsAfterGuard(t *testing.T) {
	est, clock := newTestEstimator(t)

	clock.Advance(3 * time.Second)
	est.Observe("   ")
	if got := est.WordsPerMinute(); got != 0 {
		t.Fatalf("expected 0 for empty transcript, got %d", got)
	}
}

func TestEstimateRefinesWithCumulativeEvents(t *testing.T) {
	est, clock := newTestEstimator(t)

	clock.Advance(2 * time.Second)
	est.Observe("one two")
	if got := est.WordsPerMinute(); got != 60 {
		t.Fatalf("expected 60 at 2s, got %d", got)
	}

	clock.Advance(2 * time.Second)
	est.Observe("one two three four five six seven eight")
	// round(8 / 4.0 * 60) = 120
	if got := est.WordsPerMinute(); got != 120 {
		t.Fatalf("expected 120 at 4s, got %d", got)
	}
	if est.Transcript() != "one two three four five six seven eight" {
		t.Errorf("transcript must track the latest cumulative event")
	}
}

func TestRounding(t *testing.T) {
	est, clock := newTestEstimator(t)

	clock.Advance(7 * time.Second)
	est.Observe("a b c d e f g h i j k") // 11 words
	// 11/7*60 = 94.28… → 94
	if got := est.WordsPerMinute(); got != 94 {
		t.Fatalf("expected 94, got %d", got)
	}
}
