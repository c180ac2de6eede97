// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transcript

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rapidaai/pkg/commons"
)

// DefaultWordsPerMinute is the rate shown before recognition produces a
// usable estimate, and for the whole session when recognition is unavailable.
const DefaultWordsPerMinute = 120

// Estimator derives a smoothed words-per-minute figure from a live,
// cumulative transcript stream. Each observation carries the full transcript
// so far; the estimate is the since-session-start average rate, which damps
// noise from bursty recognition callbacks. It deliberately is not an
// instantaneous recent-window rate.
type Estimator struct {
	logger commons.Logger

	mu         sync.Mutex
	start      time.Time
	transcript string
	wpm        int
	// clock is injectable for testing; defaults to time.Now.
	clock func() time.Time
}

type EstimatorOption func(*Estimator)

func WithClock(clock func() time.Time) EstimatorOption {
	return func(e *Estimator) { e.clock = clock }
}

// NewEstimator starts the session timeline at construction time.
func NewEstimator(logger commons.Logger, opts ...EstimatorOption) *Estimator {
	e := &Estimator{
		logger: logger,
		wpm:    DefaultWordsPerMinute,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.start = e.clock()
	return e
}

// Observe ingests one recognition event carrying the full cumulative
// transcript. The estimate is only recomputed once more than one second has
// elapsed since session start, to avoid division-by-near-zero instability.
func (e *Estimator) Observe(cumulative string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.transcript = cumulative
	words := float64(len(strings.Fields(cumulative)))
	elapsed := e.clock().Sub(e.start).Seconds()
	if elapsed <= 1.0 {
		return
	}
	e.wpm = int(math.Round(words / elapsed * 60.0))
}

// WordsPerMinute returns the current estimate.
func (e *Estimator) WordsPerMinute() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wpm
}

// Transcript returns the latest cumulative transcript.
func (e *Estimator) Transcript() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transcript
}
