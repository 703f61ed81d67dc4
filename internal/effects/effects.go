// Package effects implements the per-channel and master-bus audio effects:
// delay, reverb, chorus, distortion, tremolo, noise gate, compressor, and a
// 5-band EQ. Wet and feedback levels are stored as atomic float32 bits so
// control goroutines can patch a live chain without locking the audio thread.
package effects

import (
	"math"
	"sync/atomic"
)

// Effector processes stereo audio in-place.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// param is a float32 stored as bits for lock-free reads from the audio
// thread while control goroutines update it (same scheme as EQ5Band gains).
type param struct {
	bits atomic.Uint32
}

func (p *param) store(v float32) { p.bits.Store(math.Float32bits(v)) }
func (p *param) load() float32   { return math.Float32frombits(p.bits.Load()) }

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(l, r float32) (float32, float32) {
	for _, e := range c.effects {
		l, r = e.Process(l, r)
	}
	return l, r
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}

// Replace swaps the effect at index i, keeping chain order. No-op when i is
// out of range. Used to attach asynchronously built effects (reverb) into a
// pre-wired slot.
func (c *Chain) Replace(i int, e Effector) {
	if i >= 0 && i < len(c.effects) {
		c.effects[i] = e
	}
}

// At returns the effect at index i, or nil when out of range.
func (c *Chain) At(i int) Effector {
	if i < 0 || i >= len(c.effects) {
		return nil
	}
	return c.effects[i]
}

// Bypass passes audio through untouched. It holds chain slots for effects
// that are disabled or still being constructed.
type Bypass struct{}

func (Bypass) Process(l, r float32) (float32, float32) { return l, r }
func (Bypass) Reset()                                  {}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
