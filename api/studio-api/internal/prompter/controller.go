// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_prompter

import (
	"context"
	"sync"
	"time"

	"github.com/rapidaai/pkg/commons"
)

// Presentation tunables. Both are configuration, not magic constants: the
// tick period paces scroll updates, the pixels-per-word multiplier converts
// accumulated words into a viewport offset.
const (
	DefaultTickPeriod    = 50 * time.Millisecond
	DefaultPixelsPerWord = 20.0
)

// Controller advances a teleprompter scroll offset proportionally to the
// current words-per-minute rate. While active it ticks on a fixed period:
//
//	accumulatedWords += rate * period / 1min
//	offset = accumulatedWords * pixelsPerWord
//
// The rate is a live input (SetRate), not a value captured at activation, so
// a changing estimate takes effect on the next tick. Deactivation cancels
// the tick and discards the accumulator; reactivation restarts from zero.
type Controller struct {
	logger commons.Logger

	period        time.Duration
	pixelsPerWord float64
	sink          func(offset float64)

	mu     sync.Mutex
	active bool
	rate   int
	words  float64
	offset float64
	cancel context.CancelFunc
}

type Option func(*Controller)

// WithTickPeriod overrides the scroll tick period.
func WithTickPeriod(period time.Duration) Option {
	return func(c *Controller) { c.period = period }
}

// WithPixelsPerWord overrides the words-to-pixels presentation multiplier.
func WithPixelsPerWord(pixels float64) Option {
	return func(c *Controller) { c.pixelsPerWord = pixels }
}

// WithScrollSink registers a callback invoked with the new offset after each
// tick. Called from the tick goroutine, outside the controller lock.
func WithScrollSink(sink func(offset float64)) Option {
	return func(c *Controller) { c.sink = sink }
}

func NewController(logger commons.Logger, opts ...Option) *Controller {
	c := &Controller{
		logger:        logger,
		period:        DefaultTickPeriod,
		pixelsPerWord: DefaultPixelsPerWord,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Activate starts the periodic tick at the given rate with a fresh
// accumulator. No-op while already active.
func (c *Controller) Activate(wordsPerMinute int) {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return
	}
	c.active = true
	c.rate = wordsPerMinute
	c.words = 0
	c.offset = 0
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	c.logger.Debugw("prompter activated", "wpm", wordsPerMinute)
	go c.run(ctx)
}

// Deactivate cancels the periodic tick and discards the running accumulator.
// No resume-from-offset semantics: the next activation starts from zero.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	cancel := c.cancel
	c.cancel = nil
	c.words = 0
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.logger.Debug("prompter deactivated")
}

// SetRate updates the scroll rate; it takes effect on the next tick.
func (c *Controller) SetRate(wordsPerMinute int) {
	c.mu.Lock()
	c.rate = wordsPerMinute
	c.mu.Unlock()
}

// Active reports whether the tick loop is running.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Offset returns the current scroll offset in pixels.
func (c *Controller) Offset() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

func (c *Controller) run(ctx context.Context) {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.step()
		}
	}
}

// step advances the accumulator by exactly one tick. Offset progression is a
// pure function of tick count, rate and configuration, independent of
// wall-clock jitter between ticks.
func (c *Controller) step() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.words += float64(c.rate) * c.period.Seconds() / 60.0
	c.offset = c.words * c.pixelsPerWord
	offset := c.offset
	sink := c.sink
	c.mu.Unlock()

	if sink != nil {
		sink(offset)
	}
}
