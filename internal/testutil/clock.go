package testutil

import (
	"sync"
	"time"
)

// Epoch is the starting instant of every StepClock.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// StepClock is a deterministic clock for tests.
//
// Every call to Now() advances the clock by a fixed step, so an execution
// that reads the clock twice reports exactly one step of elapsed time.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewStepClock creates a clock starting at Epoch that advances by step.
func NewStepClock(step time.Duration) *StepClock {
	return &StepClock{now: Epoch, step: step}
}

// Now returns the current instant, then advances the clock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Reset rewinds the clock to Epoch.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
}

// ConstantGenerator returns the same pass id every time.
//
// Unlike engine.FixedGenerator, which returns ids in sequence and panics
// when exhausted, it never runs out. Useful for golden output across many
// resolutions.
type ConstantGenerator struct {
	id string
}

// NewConstantGenerator creates a generator for id.
// If id is empty, Generate() returns "test-pass".
func NewConstantGenerator(id string) *ConstantGenerator {
	if id == "" {
		id = "test-pass"
	}
	return &ConstantGenerator{id: id}
}

// Generate returns the fixed id.
func (g *ConstantGenerator) Generate() string {
	return g.id
}
