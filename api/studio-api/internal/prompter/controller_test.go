package internal_prompter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rapidaai/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("prompter-test"),
		commons.Level("error"),
	)
	if err != nil {
		t.Fatalf("failed to build test logger: %v", err)
	}
	return logger
}

// advance drives the controller by exact tick counts without a running
// ticker, so offsets are deterministic.
func advance(c *Controller, ticks int) {
	for i := 0; i < ticks; i++ {
		c.step()
	}
}

func TestControllerDefaults(t *testing.T) {
	c := NewController(newTestLogger(t))
	assert.Equal(t, DefaultTickPeriod, c.period)
	assert.Equal(t, DefaultPixelsPerWord, c.pixelsPerWord)
	assert.False(t, c.Active())
	assert.Equal(t, 0.0, c.Offset())
}

func TestControllerOffsetAfterFixedTicks(t *testing.T) {
	c := NewController(newTestLogger(t))
	c.Activate(120)
	defer c.Deactivate()

	// 120 wpm at 50ms per tick is 0.1 words per tick. After 10 ticks that
	// is 1 word, so 20 pixels.
	advance(c, 10)
	assert.InDelta(t, 20.0, c.Offset(), 1e-9)

	advance(c, 10)
	assert.InDelta(t, 40.0, c.Offset(), 1e-9)
}

func TestControllerOffsetScalesWithRate(t *testing.T) {
	c := NewController(newTestLogger(t))
	c.Activate(240)
	defer c.Deactivate()

	advance(c, 10)
	assert.InDelta(t, 40.0, c.Offset(), 1e-9)
}

func TestControllerSetRateTakesEffectNextTick(t *testing.T) {
	c := NewController(newTestLogger(t))
	c.Activate(120)
	defer c.Deactivate()

	advance(c, 10)
	assert.InDelta(t, 20.0, c.Offset(), 1e-9)

	// Doubling the rate doubles per-tick progress from here on, it does
	// not rewrite history.
	c.SetRate(240)
	advance(c, 10)
	assert.InDelta(t, 60.0, c.Offset(), 1e-9)
}

func TestControllerDeactivateDiscardsAccumulator(t *testing.T) {
	c := NewController(newTestLogger(t))
	c.Activate(120)
	advance(c, 10)
	assert.InDelta(t, 20.0, c.Offset(), 1e-9)

	c.Deactivate()
	assert.False(t, c.Active())

	// Reactivation restarts from zero: a fresh run of N ticks lands on the
	// same offset as a first-ever run of N ticks.
	c.Activate(120)
	defer c.Deactivate()
	advance(c, 10)
	assert.InDelta(t, 20.0, c.Offset(), 1e-9)
}

func TestControllerStepIgnoredWhileInactive(t *testing.T) {
	c := NewController(newTestLogger(t))
	advance(c, 5)
	assert.Equal(t, 0.0, c.Offset())
}

func TestControllerActivateIsIdempotent(t *testing.T) {
	c := NewController(newTestLogger(t))
	c.Activate(120)
	defer c.Deactivate()
	advance(c, 10)

	// A second Activate while running must not reset the accumulator.
	c.Activate(120)
	assert.InDelta(t, 20.0, c.Offset(), 1e-9)
}

func TestControllerCustomPixelsPerWord(t *testing.T) {
	c := NewController(newTestLogger(t), WithPixelsPerWord(10.0))
	c.Activate(120)
	defer c.Deactivate()

	advance(c, 10)
	assert.InDelta(t, 10.0, c.Offset(), 1e-9)
}

func TestControllerSinkReceivesOffsets(t *testing.T) {
	var mu sync.Mutex
	got := make([]float64, 0)

	c := NewController(newTestLogger(t), WithScrollSink(func(offset float64) {
		mu.Lock()
		got = append(got, offset)
		mu.Unlock()
	}))
	c.Activate(120)
	defer c.Deactivate()

	advance(c, 3)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, got, 3)
	assert.InDelta(t, 2.0, got[0], 1e-9)
	assert.InDelta(t, 4.0, got[1], 1e-9)
	assert.InDelta(t, 6.0, got[2], 1e-9)
}

func TestControllerTickerRuns(t *testing.T) {
	c := NewController(newTestLogger(t), WithTickPeriod(time.Millisecond))
	c.Activate(6000)
	defer c.Deactivate()

	deadline := time.After(time.Second)
	for c.Offset() == 0 {
		select {
		case <-deadline:
			t.Fatal("ticker never advanced the offset")
		case <-time.After(time.Millisecond):
		}
	}
}
