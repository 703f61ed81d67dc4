// Package preset defines the sound description applied to an audio channel.
// Presets are values: editing a parameter produces a new preset with a
// derived id, never a mutation of the original. The orchestrator compares
// base ids to decide between a live parameter patch and a full channel
// rebuild, so the id derivation here is load-bearing.
package preset

import "strings"

// modifiedSuffix marks a preset whose parameters were edited away from a
// library preset.
const modifiedSuffix = "*"

// Envelope is a standard ADSR description. Times are in seconds, sustain is
// a 0..1 level.
type Envelope struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// Filter describes the per-channel filter.
type Filter struct {
	Type   string  // "lowpass", "highpass", "bandpass"
	Cutoff float64 // Hz
	Q      float64 // resonance
}

// Effects is the per-channel effect send bundle. All wet levels are 0..1.
type Effects struct {
	ReverbWet     float64
	ReverbSize    float64 // room size 0..1
	DelayWet      float64
	DelayTimeMs   float64
	DelayFeedback float64
	ChorusWet     float64
	ChorusDepthMs float64
	ChorusRateHz  float64
	DistortionWet float64
	Drive         float64
	TremoloDepth  float64
	TremoloRateHz float64
	GateThreshold float64 // dB; -100 = effectively open
}

// Preset describes one channel's sound.
type Preset struct {
	ID           string
	Name         string
	Oscillator   string // "sine", "square", "sawtooth", "triangle", "pulse", "noise"
	Envelope     Envelope
	Filter       Filter
	Effects      Effects
	DetuneCents  float64
	VolumeDB     float64
	VibratoDepth float64 // semitones
	VibratoRate  float64 // Hz
}

// BaseID returns the preset's identity with any modified marker stripped.
// Two presets with equal base ids describe the same underlying patch and may
// be reconciled with a live parameter update instead of a rebuild.
func (p Preset) BaseID() string {
	return strings.TrimSuffix(p.ID, modifiedSuffix)
}

// Modified returns a copy carrying the modified marker. The receiver is
// untouched.
func (p Preset) Modified() Preset {
	out := p
	if !strings.HasSuffix(out.ID, modifiedSuffix) {
		out.ID += modifiedSuffix
		out.Name += " (edited)"
	}
	return out
}

// IsModified reports whether the preset carries the modified marker.
func (p Preset) IsModified() bool {
	return strings.HasSuffix(p.ID, modifiedSuffix)
}

// Normalize clamps every numeric field to its documented range and fills
// defaults for missing optional effect fields (zero tremolo stays zero; a
// zero gate threshold means "absent" and becomes the -100 dB floor).
// Externally produced preset data goes through here before reaching audio.
func (p Preset) Normalize() Preset {
	out := p
	if out.Oscillator == "" {
		out.Oscillator = "sine"
	}
	out.Envelope.Attack = clamp(out.Envelope.Attack, 0.001, 10)
	out.Envelope.Decay = clamp(out.Envelope.Decay, 0.001, 10)
	out.Envelope.Sustain = clamp(out.Envelope.Sustain, 0, 1)
	out.Envelope.Release = clamp(out.Envelope.Release, 0.001, 20)
	if out.Filter.Type == "" {
		out.Filter.Type = "lowpass"
	}
	if out.Filter.Cutoff == 0 {
		out.Filter.Cutoff = 8000
	}
	out.Filter.Cutoff = clamp(out.Filter.Cutoff, 20, 20000)
	if out.Filter.Q == 0 {
		out.Filter.Q = 1
	}
	out.Filter.Q = clamp(out.Filter.Q, 0.1, 20)
	fx := &out.Effects
	fx.ReverbWet = clamp(fx.ReverbWet, 0, 1)
	fx.ReverbSize = clamp(fx.ReverbSize, 0, 1)
	fx.DelayWet = clamp(fx.DelayWet, 0, 1)
	if fx.DelayTimeMs == 0 {
		fx.DelayTimeMs = 250
	}
	fx.DelayTimeMs = clamp(fx.DelayTimeMs, 1, 2000)
	fx.DelayFeedback = clamp(fx.DelayFeedback, 0, 0.95)
	fx.ChorusWet = clamp(fx.ChorusWet, 0, 1)
	if fx.ChorusDepthMs == 0 {
		fx.ChorusDepthMs = 3
	}
	if fx.ChorusRateHz == 0 {
		fx.ChorusRateHz = 1.5
	}
	fx.DistortionWet = clamp(fx.DistortionWet, 0, 1)
	if fx.Drive == 0 {
		fx.Drive = 4
	}
	fx.TremoloDepth = clamp(fx.TremoloDepth, 0, 1)
	if fx.TremoloRateHz == 0 {
		fx.TremoloRateHz = 5
	}
	if fx.GateThreshold == 0 {
		fx.GateThreshold = -100
	}
	fx.GateThreshold = clamp(fx.GateThreshold, -100, 0)
	out.DetuneCents = clamp(out.DetuneCents, -1200, 1200)
	out.VolumeDB = clamp(out.VolumeDB, -60, 6)
	out.VibratoDepth = clamp(out.VibratoDepth, 0, 12)
	out.VibratoRate = clamp(out.VibratoRate, 0, 20)
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
