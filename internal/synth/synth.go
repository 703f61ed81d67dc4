// Package synth provides the voice banks behind audio channels: a polyphonic
// bank with per-voice ADSR envelopes and a shared state-variable filter, and
// a monophonic voice with portamento for the arpeggiator.
//
// Engines here are not safe for concurrent use; the channel manager
// serializes render and trigger calls.
package synth

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/toneclock-go/internal/lfo"
)

const twoPi = math.Pi * 2

// Waveform codes.
const (
	WaveSine = iota
	WaveSaw
	WaveTriangle
	WaveSquare
	WavePulse25
	WavePulse125
	WaveNoise
)

// Filter type codes, matching SetFilterType.
const (
	FilterLP = iota
	FilterBP
	FilterHP
)

// Params describe the live-updatable portion of a voice bank.
type Params struct {
	Waveform     int
	AttackSec    float64
	DecaySec     float64
	SustainLvl   float64
	ReleaseSec   float64
	FilterType   int
	FilterCutoff float64 // Hz, 0 disables
	FilterQ      float64 // resonance, ~0.5..10
	DetuneCents  float64
	VibratoDepth float64 // semitones, 0 disables
	VibratoRate  float64 // Hz
}

// DefaultParams is a plain sine voice with a gentle envelope.
func DefaultParams() Params {
	return Params{
		Waveform:     WaveSine,
		AttackSec:    0.01,
		DecaySec:     0.1,
		SustainLvl:   0.7,
		ReleaseSec:   0.3,
		FilterType:   FilterLP,
		FilterCutoff: 8000,
		FilterQ:      1,
	}
}

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type voice struct {
	active   bool
	freq     float64
	phase    float64
	env      float64
	envState envState
	velocity float64

	// glide state, mono voice only
	glideTarget float64
	glideFrames int
	glideStep   float64
}

// svf is a Chamberlin state-variable filter; it gives the resonant
// LP/BP/HP response the plain one-pole in the ancestor engine could not.
type svf struct {
	low, band float64
	f, q      float64
	kind      int
	enabled   bool
}

func (s *svf) configure(sampleRate, cutoff, res float64, kind int) {
	if cutoff <= 0 || cutoff >= sampleRate/2 {
		s.enabled = false
		return
	}
	s.enabled = true
	s.kind = kind
	s.f = 2 * math.Sin(math.Pi*cutoff/sampleRate)
	if res < 0.5 {
		res = 0.5
	}
	if res > 20 {
		res = 20
	}
	s.q = 1 / res
}

func (s *svf) process(in float64) float64 {
	if !s.enabled {
		return in
	}
	s.low += s.f * s.band
	high := in - s.low - s.q*s.band
	s.band += s.f * high
	switch s.kind {
	case FilterBP:
		return s.band
	case FilterHP:
		return high
	default:
		return s.low
	}
}

// Poly is a polyphonic voice bank keyed by frequency.
type Poly struct {
	sampleRate float64
	params     Params
	voices     []voice
	filter     svf
	pitchLFO   lfo.LFO
	masterGain uint64
}

// NewPoly creates a bank with the given polyphony (minimum 1).
func NewPoly(sampleRate int, polyphony int, params Params) *Poly {
	if polyphony < 1 {
		polyphony = 8
	}
	p := &Poly{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]voice, polyphony),
		masterGain: math.Float64bits(1),
	}
	p.filter.configure(p.sampleRate, params.FilterCutoff, params.FilterQ, params.FilterType)
	p.pitchLFO.Set(params.VibratoDepth, params.VibratoRate, lfo.WaveTriangle)
	return p
}

// SetParams patches waveform, envelope, filter, and detune on the live bank.
// Sounding voices keep ringing; envelope rate changes apply from the current
// envelope position, so there is no retrigger and no click.
func (p *Poly) SetParams(params Params) {
	p.params = params
	p.filter.configure(p.sampleRate, params.FilterCutoff, params.FilterQ, params.FilterType)
	p.pitchLFO.Set(params.VibratoDepth, params.VibratoRate, lfo.WaveTriangle)
}

// Params returns the current parameter set.
func (p *Poly) Params() Params {
	return p.params
}

// SetMasterGain sets the output gain. Safe to call from any goroutine.
func (p *Poly) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&p.masterGain, math.Float64bits(gain))
}

func (p *Poly) gain() float64 {
	return math.Float64frombits(atomic.LoadUint64(&p.masterGain))
}

// TriggerAttack starts a sustained voice at the given frequency.
func (p *Poly) TriggerAttack(freq float64, velocity float64) {
	if freq <= 0 {
		return
	}
	slot := p.steal()
	p.voices[slot] = voice{
		active:   true,
		freq:     freq,
		envState: envAttack,
		velocity: clamp(velocity, 0, 1),
	}
}

// TriggerRelease releases every sounding voice near the given frequency.
// Releasing a frequency that was never attacked is a no-op. Voices are keyed
// by their undetuned frequency, so release matches even after a detune tweak.
func (p *Poly) TriggerRelease(freq float64) {
	target := freq
	for i := range p.voices {
		v := &p.voices[i]
		if v.active && v.envState != envRelease && closeFreq(v.freq, target) {
			v.envState = envRelease
		}
	}
}

// ReleaseAll releases every sounding voice.
func (p *Poly) ReleaseAll() {
	for i := range p.voices {
		if p.voices[i].active {
			p.voices[i].envState = envRelease
		}
	}
}

// ActiveVoiceCount returns the number of voices still sounding, release
// tails included.
func (p *Poly) ActiveVoiceCount() int {
	n := 0
	for i := range p.voices {
		if p.voices[i].active {
			n++
		}
	}
	return n
}

// RenderFrame produces one mono sample, post-filter and post-gain.
func (p *Poly) RenderFrame() float32 {
	freqMul := detuneRatio(p.params.DetuneCents)
	if mod := p.pitchLFO.Sample(p.sampleRate); mod != 0 {
		freqMul *= math.Pow(2, mod/12)
	}
	var sum float64
	for i := range p.voices {
		v := &p.voices[i]
		if !v.active {
			continue
		}
		advanceEnv(v, &p.params, p.sampleRate)
		if v.envState == envOff {
			v.active = false
			continue
		}
		sum += waveformSample(v.phase, p.params.Waveform) * v.env * (0.3 + 0.7*v.velocity)
		v.phase += twoPi * v.freq * freqMul / p.sampleRate
		if v.phase > twoPi {
			v.phase -= twoPi
		}
	}
	out := p.filter.process(sum) * p.gain()
	return float32(clamp(out, -1, 1))
}

func (p *Poly) steal() int {
	for i := range p.voices {
		if !p.voices[i].active {
			return i
		}
	}
	quiet := 0
	minEnv := p.voices[0].env
	for i := 1; i < len(p.voices); i++ {
		if p.voices[i].env < minEnv {
			minEnv = p.voices[i].env
			quiet = i
		}
	}
	return quiet
}

// Mono is a single glide voice. A note-on while a note is sounding slides
// the pitch to the new target over the configured portamento time instead of
// retriggering from silence.
type Mono struct {
	sampleRate float64
	params     Params
	v          voice
	filter     svf
	portaSec   float64
	masterGain uint64
}

// NewMono creates a mono glide voice.
func NewMono(sampleRate int, params Params) *Mono {
	m := &Mono{
		sampleRate: float64(sampleRate),
		params:     params,
		masterGain: math.Float64bits(1),
	}
	m.filter.configure(m.sampleRate, params.FilterCutoff, params.FilterQ, params.FilterType)
	return m
}

// SetParams patches the live voice; see Poly.SetParams.
func (m *Mono) SetParams(params Params) {
	m.params = params
	m.filter.configure(m.sampleRate, params.FilterCutoff, params.FilterQ, params.FilterType)
}

// SetPortamento sets the glide duration applied on the next note transition.
func (m *Mono) SetPortamento(sec float64) {
	if sec < 0 {
		sec = 0
	}
	m.portaSec = sec
}

// Portamento returns the current glide duration in seconds.
func (m *Mono) Portamento() float64 {
	return m.portaSec
}

// SetMasterGain sets the output gain. Safe to call from any goroutine.
func (m *Mono) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&m.masterGain, math.Float64bits(gain))
}

// NoteOn moves the voice to freq. When already sounding, the pitch glides
// and the envelope re-enters attack from its current level.
func (m *Mono) NoteOn(freq float64, velocity float64) {
	if freq <= 0 {
		return
	}
	frames := int(m.portaSec * m.sampleRate)
	if m.v.active && m.v.envState != envOff && frames > 0 {
		m.v.glideTarget = freq
		m.v.glideFrames = frames
		m.v.glideStep = (freq - m.v.freq) / float64(frames)
	} else {
		m.v.freq = freq
		m.v.glideFrames = 0
	}
	m.v.active = true
	m.v.envState = envAttack
	m.v.velocity = clamp(velocity, 0, 1)
}

// Release releases the voice.
func (m *Mono) Release() {
	if m.v.active {
		m.v.envState = envRelease
	}
}

// Frequency returns the voice's instantaneous frequency (useful in tests to
// observe glide progress).
func (m *Mono) Frequency() float64 {
	return m.v.freq
}

// Active reports whether the voice is sounding.
func (m *Mono) Active() bool {
	return m.v.active
}

// RenderFrame produces one mono sample.
func (m *Mono) RenderFrame() float32 {
	v := &m.v
	if !v.active {
		return 0
	}
	advanceEnv(v, &m.params, m.sampleRate)
	if v.envState == envOff {
		v.active = false
		return 0
	}
	s := waveformSample(v.phase, m.params.Waveform) * v.env * (0.3 + 0.7*v.velocity)
	if v.glideFrames > 0 {
		v.glideFrames--
		v.freq += v.glideStep
		if v.glideFrames <= 0 {
			v.freq = v.glideTarget
		}
	}
	v.phase += twoPi * v.freq * detuneRatio(m.params.DetuneCents) / m.sampleRate
	if v.phase > twoPi {
		v.phase -= twoPi
	}
	out := m.filter.process(s) * math.Float64frombits(atomic.LoadUint64(&m.masterGain))
	return float32(clamp(out, -1, 1))
}

func advanceEnv(v *voice, p *Params, sampleRate float64) {
	switch v.envState {
	case envAttack:
		step := 1.0 / (p.AttackSec * sampleRate)
		if step <= 0 || math.IsInf(step, 0) {
			step = 1
		}
		v.env += step
		if v.env >= 1 {
			v.env = 1
			v.envState = envDecay
		}
	case envDecay:
		step := (1 - p.SustainLvl) / (p.DecaySec * sampleRate)
		if step <= 0 || math.IsInf(step, 0) {
			step = 1
		}
		v.env -= step
		if v.env <= p.SustainLvl {
			v.env = p.SustainLvl
			v.envState = envSustain
		}
	case envSustain:
		v.env = p.SustainLvl
	case envRelease:
		step := 1.0 / (p.ReleaseSec * sampleRate)
		if step <= 0 || math.IsInf(step, 0) {
			step = 1
		}
		v.env -= step
		if v.env <= 0.0001 {
			v.env = 0
			v.envState = envOff
		}
	case envOff:
		v.env = 0
	}
}

var noiseLFSR uint32 = 0x7FFF

func waveformSample(phase float64, waveform int) float64 {
	switch waveform {
	case WaveSaw:
		return 1.0 - 2.0*math.Mod(phase, twoPi)/twoPi
	case WaveTriangle:
		return 2.0*math.Abs(2.0*math.Mod(phase, twoPi)/twoPi-1.0) - 1.0
	case WaveSquare:
		if math.Mod(phase, twoPi) < math.Pi {
			return 1.0
		}
		return -1.0
	case WavePulse25:
		if math.Mod(phase, twoPi) < math.Pi/2 {
			return 1.0
		}
		return -1.0
	case WavePulse125:
		if math.Mod(phase, twoPi) < math.Pi/4 {
			return 1.0
		}
		return -1.0
	case WaveNoise:
		noiseLFSR = (noiseLFSR >> 1) ^ (-(noiseLFSR & 1) & 0xB400)
		return float64(noiseLFSR)/float64(0x7FFF)*2.0 - 1.0
	default:
		return math.Sin(phase)
	}
}

func detuneRatio(cents float64) float64 {
	if cents == 0 {
		return 1
	}
	return math.Pow(2, cents/1200)
}

func closeFreq(a, b float64) bool {
	if b == 0 {
		return a == 0
	}
	r := a / b
	return r > 0.999 && r < 1.001
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
