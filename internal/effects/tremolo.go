package effects

import "github.com/cbegin/toneclock-go/internal/lfo"

// Tremolo modulates amplitude with an LFO. Depth is live-settable; rate is
// fixed at construction.
type Tremolo struct {
	osc        lfo.LFO
	sampleRate float64
	depth      param
}

// NewTremolo creates a tremolo effect.
// rateHz: modulation rate in Hz
// depth: modulation depth 0..1 (0 = bypass)
func NewTremolo(sampleRate int, rateHz, depth float32) *Tremolo {
	t := &Tremolo{sampleRate: float64(sampleRate)}
	t.osc.Set(1, float64(rateHz), lfo.WaveTriangle)
	t.depth.store(clamp(depth, 0, 1))
	return t
}

// SetDepth updates the modulation depth on the live effect.
func (t *Tremolo) SetDepth(depth float32) {
	t.depth.store(clamp(depth, 0, 1))
}

func (t *Tremolo) Process(l, r float32) (float32, float32) {
	depth := t.depth.load()
	if depth == 0 {
		return l, r
	}
	// LFO swings -1..1; map to a gain dipping from 1 down to 1-depth.
	mod := float32(t.osc.Sample(t.sampleRate))
	gain := 1 - depth*0.5*(1+mod)
	return l * gain, r * gain
}

func (t *Tremolo) Reset() {
	t.osc.Reset()
}
