// Package channels owns the per-layer audio signal chains: creation, live
// parameter patching, disposal, note attack/release bookkeeping, and the
// dedicated monophonic arpeggiator voice. It mixes every channel into a
// master bus (compressor, 5-band EQ, master gain) and serves the result to
// the audio backend as a SampleSource.
//
// Two update paths exist on purpose. CreateChannel rebuilds the whole chain
// and is audibly glitchy; UpdateSynthParams patches the live objects and is
// click-free. The orchestrator picks between them by comparing preset
// identities.
package channels

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/cbegin/toneclock-go/internal/audio"
	"github.com/cbegin/toneclock-go/internal/effects"
	"github.com/cbegin/toneclock-go/internal/preset"
	"github.com/cbegin/toneclock-go/internal/synth"
	"github.com/cbegin/toneclock-go/internal/theory"
)

// MuteFloorDB is the volume at or below which a channel is hard-muted
// rather than merely quiet.
const MuteFloorDB = -60

// reverbSlot is the chain index reserved for the asynchronously built
// reverb; it holds a Bypass until construction finishes.
const reverbSlot = 4

const defaultPolyphony = 12

// Channel is one named signal chain. Channels are owned exclusively by the
// Manager; other layers interact through Manager operations only.
type Channel struct {
	id     string
	preset preset.Preset
	voices *synth.Poly
	chain  *effects.Chain

	tremolo *effects.Tremolo
	dist    *effects.Distortion
	delay   *effects.Delay
	chorus  *effects.Chorus
	reverb  *effects.Reverb // nil until async construction lands
	gate    *effects.Gate

	gainTarget  float64
	gainCurrent float64

	active []string // attack-tracked note names, released as a unit
	gen    uint64
}

// arpVoiceState is the dedicated arpeggiator voice. It starts Uninitialized,
// holding at most one pending preset, and becomes Ready on first use; the
// pending preset is replayed onto the freshly built voice at that point.
type arpVoiceState struct {
	voice       *synth.Mono // nil while Uninitialized
	delay       *effects.Delay
	reverb      *effects.Reverb
	chain       *effects.Chain
	pending     *preset.Preset // only meaningful while Uninitialized
	portaSec    float64
	gainTarget  float64
	gainCurrent float64
}

type Option func(*Manager)

// WithSampleTap installs a callback invoked with each rendered stereo
// buffer. It runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) Option {
	return func(m *Manager) {
		m.tap = tap
	}
}

// Manager owns every channel and the master bus.
type Manager struct {
	mu         sync.Mutex
	sampleRate int
	started    bool
	silent     bool
	out        *audio.Output
	channels   map[string]*Channel
	arp        arpVoiceState
	genCounter uint64

	masterTarget  float64
	masterCurrent float64
	rampCoef      float64

	limiter  *effects.Compressor
	masterEQ *effects.EQ5Band
	tap      func([]float32)
}

// NewManager creates a manager that is not yet producing audio; call Start
// (from a user action) or StartSilent (offline rendering, tests).
func NewManager(sampleRate int, opts ...Option) *Manager {
	m := &Manager{
		sampleRate:    sampleRate,
		channels:      make(map[string]*Channel),
		masterTarget:  1,
		masterCurrent: 1,
		rampCoef:      1 - math.Exp(-1.0/(0.01*float64(sampleRate))),
		limiter:       effects.NewCompressor(sampleRate, -6, 4, 5, 100, 0),
		masterEQ:      effects.NewEQ5Band(sampleRate),
	}
	m.arp.gainTarget = 1
	m.arp.gainCurrent = 1
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens the audio device and begins pulling samples. Idempotent.
// Platform autoplay policy requires this to happen as a consequence of a
// genuine user interaction; the orchestrator enforces that by only calling
// Start from its Play operation.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}
	out, err := audio.NewOutput(m.sampleRate, m)
	if err != nil {
		return err
	}
	m.out = out
	m.started = true
	out.Play()
	return nil
}

// StartSilent marks the manager started without opening a device. Offline
// rendering and tests drive Process directly.
func (m *Manager) StartSilent() {
	m.mu.Lock()
	m.started = true
	m.silent = true
	m.mu.Unlock()
}

// Started reports whether audio has been activated.
func (m *Manager) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// SampleRate returns the configured sample rate.
func (m *Manager) SampleRate() int {
	return m.sampleRate
}

// CreateChannel builds a fresh signal chain for id from every preset field,
// disposing any existing channel under that id first. This is the swap path:
// a full reinitialization, including asynchronous reverb construction, and
// it is audible. Use UpdateSynthParams for parameter-only changes.
func (m *Manager) CreateChannel(id string, p preset.Preset) {
	p = p.Normalize()
	m.mu.Lock()
	if old, ok := m.channels[id]; ok {
		releaseAllLocked(old)
	}
	m.genCounter++
	ch := &Channel{
		id:     id,
		preset: p,
		voices: synth.NewPoly(m.sampleRate, defaultPolyphony, presetToParams(p)),
		gen:    m.genCounter,
	}
	ch.tremolo = effects.NewTremolo(m.sampleRate, float32(p.Effects.TremoloRateHz), float32(p.Effects.TremoloDepth))
	ch.dist = effects.NewDistortion(m.sampleRate, float32(p.Effects.Drive), 0.7, 8000, float32(p.Effects.DistortionWet))
	ch.chorus = effects.NewChorus(m.sampleRate, 15, 0.2, float32(p.Effects.ChorusDepthMs), float32(p.Effects.ChorusRateHz), float32(p.Effects.ChorusWet))
	ch.delay = effects.NewDelay(m.sampleRate, p.Effects.DelayTimeMs, float32(p.Effects.DelayFeedback), 0.2, float32(p.Effects.DelayWet))
	ch.gate = effects.NewGate(m.sampleRate, float32(p.Effects.GateThreshold))
	ch.chain = effects.NewChain(ch.tremolo, ch.dist, ch.chorus, ch.delay, effects.Bypass{}, ch.gate)
	gain := dbToGain(p.VolumeDB)
	ch.gainTarget = gain
	ch.gainCurrent = gain
	m.channels[id] = ch
	gen := ch.gen
	m.mu.Unlock()

	go m.buildReverb(id, gen, p)
}

// buildReverb constructs the reverb off the caller's goroutine and attaches
// it only if the channel has not been swapped again in the meantime. A
// construction failure leaves the channel alive with the reverb bypassed.
func (m *Manager) buildReverb(id string, gen uint64, p preset.Preset) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("channels: reverb setup failed for %q: %v (continuing without reverb)", id, r)
		}
	}()
	rv := effects.NewReverb(m.sampleRate, float32(p.Effects.ReverbSize), 0.7, float32(p.Effects.ReverbWet))
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[id]
	if !ok || ch.gen != gen {
		return // channel swapped while we were building; drop the stale reverb
	}
	ch.reverb = rv
	ch.chain.Replace(reverbSlot, rv)
}

// UpdateSynthParams patches waveform, envelope, filter, and effect levels on
// the live chain without reconstructing anything. Sounding notes continue
// uninterrupted; this is the tweak path for continuous slider edits.
// Missing channels are silently ignored.
func (m *Manager) UpdateSynthParams(id string, p preset.Preset) {
	p = p.Normalize()
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[id]
	if !ok {
		return
	}
	ch.preset = p
	ch.voices.SetParams(presetToParams(p))
	ch.tremolo.SetDepth(float32(p.Effects.TremoloDepth))
	ch.dist.SetWet(float32(p.Effects.DistortionWet))
	ch.dist.SetDrive(float32(p.Effects.Drive))
	ch.chorus.SetWet(float32(p.Effects.ChorusWet))
	ch.delay.SetWet(float32(p.Effects.DelayWet))
	ch.delay.SetFeedback(float32(p.Effects.DelayFeedback))
	ch.gate.SetThreshold(float32(p.Effects.GateThreshold))
	if ch.reverb != nil {
		ch.reverb.SetWet(float32(p.Effects.ReverbWet))
	}
	ch.gainTarget = dbToGain(p.VolumeDB)
}

// PlayNote attacks a note and schedules its release after duration.
// Silently ignored when audio has not started or the channel is missing;
// frontends race these calls during startup and that is fine.
func (m *Manager) PlayNote(id, note string, duration time.Duration) {
	m.PlayChord(id, []string{note}, duration)
}

// PlayChord is PlayNote for a set of simultaneous notes.
func (m *Manager) PlayChord(id string, notes []string, duration time.Duration) {
	m.mu.Lock()
	ch, ok := m.channels[id]
	if !m.started || !ok {
		m.mu.Unlock()
		return
	}
	for _, n := range notes {
		if f := theory.NoteToFreq(n, 0); f > 0 {
			ch.voices.TriggerAttack(f, 0.8)
		}
	}
	m.mu.Unlock()

	notesCopy := append([]string(nil), notes...)
	time.AfterFunc(duration, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		// Look the channel up again: if it was swapped meanwhile the release
		// is a tolerated no-op on the new instance.
		cur, ok := m.channels[id]
		if !ok {
			return
		}
		for _, n := range notesCopy {
			if f := theory.NoteToFreq(n, 0); f > 0 {
				cur.voices.TriggerRelease(f)
			}
		}
	})
}

// TriggerAttack sustains a note until a matching TriggerRelease. The note is
// tracked on the channel's active list.
func (m *Manager) TriggerAttack(id, note string) {
	m.TriggerAttackChord(id, []string{note})
}

// TriggerAttackChord sustains a set of notes, tracking all of them.
func (m *Manager) TriggerAttackChord(id string, notes []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[id]
	if !m.started || !ok {
		return
	}
	for _, n := range notes {
		if f := theory.NoteToFreq(n, 0); f > 0 {
			ch.voices.TriggerAttack(f, 0.8)
			ch.active = append(ch.active, n)
		}
	}
}

// TriggerRelease releases exactly the notes currently tracked as active and
// clears the tracked list. Calling it again without an intervening attack is
// a no-op.
func (m *Manager) TriggerRelease(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[id]
	if !ok {
		return
	}
	for _, n := range ch.active {
		if f := theory.NoteToFreq(n, 0); f > 0 {
			ch.voices.TriggerRelease(f)
		}
	}
	ch.active = ch.active[:0]
}

// TriggerReleaseNotes releases a subset of the tracked notes, leaving the
// rest sounding. Untracked notes are ignored without disturbing bookkeeping.
func (m *Manager) TriggerReleaseNotes(id string, notes []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[id]
	if !ok {
		return
	}
	for _, n := range notes {
		for i, a := range ch.active {
			if a == n {
				if f := theory.NoteToFreq(n, 0); f > 0 {
					ch.voices.TriggerRelease(f)
				}
				ch.active = append(ch.active[:i], ch.active[i+1:]...)
				break
			}
		}
	}
}

// ActiveNotes returns a copy of the channel's tracked note list.
func (m *Manager) ActiveNotes(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[id]
	if !ok {
		return nil
	}
	return append([]string(nil), ch.active...)
}

// Generation returns the channel's creation generation; it changes only when
// the channel is fully rebuilt, so tests use it to observe swap-vs-tweak
// routing.
func (m *Manager) Generation(id string) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[id]
	if !ok {
		return 0, false
	}
	return ch.gen, true
}

// Preset returns the preset currently configuring the channel.
func (m *Manager) Preset(id string) (preset.Preset, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[id]
	if !ok {
		return preset.Preset{}, false
	}
	return ch.preset, true
}

// SetChannelVolume ramps the channel gain to db. At or below the -60 dB
// floor the channel is fully muted, not just quiet.
func (m *Manager) SetChannelVolume(id string, db float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.channels[id]; ok {
		ch.gainTarget = dbToGain(db)
	}
}

// SetMasterVolume ramps the master gain to db, with the same mute floor.
func (m *Manager) SetMasterVolume(db float64) {
	m.mu.Lock()
	m.masterTarget = dbToGain(db)
	m.mu.Unlock()
}

// SetEQBand sets a master EQ band gain (0-4, 1.0 = unity). Lock-free.
func (m *Manager) SetEQBand(band int, gain float32) {
	m.masterEQ.SetGain(band, gain)
}

// SetArpPreset configures the dedicated arpeggiator voice. Before the voice
// exists the preset is cached and replayed once it is built.
func (m *Manager) SetArpPreset(p preset.Preset) {
	p = p.Normalize()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.arp.voice == nil {
		m.arp.pending = &p
		return
	}
	m.applyArpPresetLocked(p)
}

// SetArpPortamento sets the glide duration applied on the next arp note
// transition.
func (m *Manager) SetArpPortamento(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.arp.portaSec = d.Seconds()
	if m.arp.voice != nil {
		m.arp.voice.SetPortamento(m.arp.portaSec)
	}
}

// PlayArpNote glides the dedicated voice to the note. The voice and its
// simpler chain (voice, filter, delay, reverb, gain) are built on first use.
func (m *Manager) PlayArpNote(note string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	if m.arp.voice == nil {
		m.buildArpVoiceLocked()
	}
	if f := theory.NoteToFreq(note, 0); f > 0 {
		m.arp.voice.NoteOn(f, 0.8)
	}
}

// ReleaseArp releases the dedicated voice if it is sounding.
func (m *Manager) ReleaseArp() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.arp.voice != nil {
		m.arp.voice.Release()
	}
}

// ArpVoiceReady reports whether the lazily built voice exists yet.
func (m *Manager) ArpVoiceReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.arp.voice != nil
}

func (m *Manager) buildArpVoiceLocked() {
	_, _, _, p := preset.Defaults()
	if m.arp.pending != nil {
		p = *m.arp.pending
		m.arp.pending = nil
	}
	m.arp.voice = synth.NewMono(m.sampleRate, presetToParams(p))
	m.arp.voice.SetPortamento(m.arp.portaSec)
	m.arp.delay = effects.NewDelay(m.sampleRate, p.Effects.DelayTimeMs, float32(p.Effects.DelayFeedback), 0.2, float32(p.Effects.DelayWet))
	m.arp.reverb = effects.NewReverb(m.sampleRate, float32(p.Effects.ReverbSize), 0.7, float32(p.Effects.ReverbWet))
	m.arp.chain = effects.NewChain(m.arp.delay, m.arp.reverb)
	gain := dbToGain(p.VolumeDB)
	m.arp.gainTarget = gain
	m.arp.gainCurrent = gain
}

func (m *Manager) applyArpPresetLocked(p preset.Preset) {
	m.arp.voice.SetParams(presetToParams(p))
	m.arp.delay.SetWet(float32(p.Effects.DelayWet))
	m.arp.delay.SetFeedback(float32(p.Effects.DelayFeedback))
	m.arp.reverb.SetWet(float32(p.Effects.ReverbWet))
	m.arp.gainTarget = dbToGain(p.VolumeDB)
}

// DisposeChannel releases the channel's notes best-effort and frees it.
func (m *Manager) DisposeChannel(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.channels[id]; ok {
		releaseAllLocked(ch)
		delete(m.channels, id)
	}
}

// DisposeAll tears down every channel and the arp voice.
func (m *Manager) DisposeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ch := range m.channels {
		releaseAllLocked(ch)
		delete(m.channels, id)
	}
	if m.arp.voice != nil {
		m.arp.voice.Release()
	}
	m.arp = arpVoiceState{gainTarget: 1, gainCurrent: 1, portaSec: m.arp.portaSec}
}

func releaseAllLocked(ch *Channel) {
	ch.voices.ReleaseAll()
	ch.active = ch.active[:0]
}

// Process renders one interleaved stereo buffer: every channel through its
// chain and smoothed gain, the arp voice through its own chain, then the
// master ramp, limiter, and EQ. Runs on the audio reader goroutine.
func (m *Manager) Process(dst []float32) {
	m.mu.Lock()
	for i := 0; i+1 < len(dst); i += 2 {
		var l, r float32
		for _, ch := range m.channels {
			s := ch.voices.RenderFrame()
			cl, cr := ch.chain.Process(s, s)
			ch.gainCurrent = ramp(ch.gainCurrent, ch.gainTarget, m.rampCoef)
			g := float32(ch.gainCurrent)
			l += cl * g
			r += cr * g
		}
		if m.arp.voice != nil {
			s := m.arp.voice.RenderFrame()
			al, ar := m.arp.chain.Process(s, s)
			m.arp.gainCurrent = ramp(m.arp.gainCurrent, m.arp.gainTarget, m.rampCoef)
			g := float32(m.arp.gainCurrent)
			l += al * g
			r += ar * g
		}
		m.masterCurrent = ramp(m.masterCurrent, m.masterTarget, m.rampCoef)
		mg := float32(m.masterCurrent)
		l, r = m.limiter.Process(l*mg, r*mg)
		l, r = m.masterEQ.Process(l, r)
		dst[i] = clamp32(l)
		dst[i+1] = clamp32(r)
	}
	tap := m.tap
	m.mu.Unlock()
	if tap != nil {
		tap(dst)
	}
}

// Stop pauses and closes the audio device. Channels survive a Stop/Start
// cycle.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.out != nil {
		if err := m.out.Stop(); err != nil {
			log.Printf("channels: audio stop: %v", err)
		}
		m.out = nil
	}
	m.started = false
	m.silent = false
}

func presetToParams(p preset.Preset) synth.Params {
	return synth.Params{
		Waveform:     waveformCode(p.Oscillator),
		AttackSec:    p.Envelope.Attack,
		DecaySec:     p.Envelope.Decay,
		SustainLvl:   p.Envelope.Sustain,
		ReleaseSec:   p.Envelope.Release,
		FilterType:   filterCode(p.Filter.Type),
		FilterCutoff: p.Filter.Cutoff,
		FilterQ:      p.Filter.Q,
		DetuneCents:  p.DetuneCents,
		VibratoDepth: p.VibratoDepth,
		VibratoRate:  p.VibratoRate,
	}
}

func waveformCode(name string) int {
	switch name {
	case "sawtooth", "saw":
		return synth.WaveSaw
	case "triangle":
		return synth.WaveTriangle
	case "square":
		return synth.WaveSquare
	case "pulse":
		return synth.WavePulse25
	case "noise":
		return synth.WaveNoise
	default:
		return synth.WaveSine
	}
}

func filterCode(name string) int {
	switch name {
	case "highpass":
		return synth.FilterHP
	case "bandpass":
		return synth.FilterBP
	default:
		return synth.FilterLP
	}
}

// ramp moves current toward target exponentially, snapping once the
// remainder is inaudible so a mute settles to exactly zero.
func ramp(current, target, coef float64) float64 {
	current += coef * (target - current)
	if math.Abs(target-current) < 1e-6 {
		return target
	}
	return current
}

// dbToGain converts decibels to linear gain, hard-muting at the floor.
func dbToGain(db float64) float64 {
	if db <= MuteFloorDB {
		return 0
	}
	return math.Pow(10, db/20)
}

func clamp32(v float32) float32 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
