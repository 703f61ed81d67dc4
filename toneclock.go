// Package toneclock is a generative instrument that plays the time of day.
// Each clock hour selects one of the twelve trichords of the tone clock, the
// quarter of the hour transposes it through the hour's tessellation, and the
// seconds walk its three notes. Three standing audio layers voice the hour
// drone, the minute arpeggio, and the second tick, with an optional glide
// arpeggiator running over the active chord.
package toneclock

import (
	"errors"
	"sync"
	"time"

	intarp "github.com/cbegin/toneclock-go/internal/arp"
	intch "github.com/cbegin/toneclock-go/internal/channels"
	intmidi "github.com/cbegin/toneclock-go/internal/midiout"
	intpreset "github.com/cbegin/toneclock-go/internal/preset"
	inttheory "github.com/cbegin/toneclock-go/internal/theory"
	intvclock "github.com/cbegin/toneclock-go/internal/vclock"
	intvisual "github.com/cbegin/toneclock-go/internal/visual"
)

// Audio layer ids. Each is an independent channel in the mixer.
const (
	LayerHour   = "hour"
	LayerMinute = "minute"
	LayerSecond = "second"
	LayerArp    = "arp"
)

// Base octaves per layer: the drone sits low, the tick sits high.
const (
	hourOctave   = 3
	minuteOctave = 4
	secondOctave = 5
)

// droneSettleDelay is the gap between releasing the old drone chord and
// attacking the new one, long enough for the release to take hold.
const droneSettleDelay = 60 * time.Millisecond

const (
	secondNoteDuration = 200 * time.Millisecond
	minuteNoteDuration = 900 * time.Millisecond
)

// EventKind tags events delivered on Watch().
type EventKind int

const (
	EventSecondTick EventKind = iota
	EventMinuteTick
	EventHourChange
	EventArpNote
	EventStopped
)

// Event carries one musical event from the engine.
type Event struct {
	Kind         EventKind
	Time         intvclock.Time
	HourPosition int      // tone clock hour 1..12
	Note         string   // second/minute/arp events
	Notes        []string // hour events: the new drone chord
}

type Option func(*Instrument)

// WithVisualEngine routes note events to a visual engine. Defaults to a
// discard engine.
func WithVisualEngine(v intvisual.Engine) Option {
	return func(in *Instrument) {
		if v != nil {
			in.visual = v
		}
	}
}

// WithMIDIMirror mirrors note events to the given MIDI output.
func WithMIDIMirror(m *intmidi.Mirror) Option {
	return func(in *Instrument) {
		in.midi = m
	}
}

// WithSampleTap installs a callback invoked with each rendered stereo
// buffer. The callback runs on the audio thread; keep work brief.
func WithSampleTap(tap func([]float32)) Option {
	return func(in *Instrument) {
		in.tap = tap
	}
}

// Instrument ties the virtual clock, the theory mapping, the mixer, and the
// arpeggiator together.
type Instrument struct {
	mu         sync.Mutex
	sampleRate int
	clock      *intvclock.Clock
	mixer      *intch.Manager
	seq        *intarp.Sequencer
	visual     intvisual.Engine
	midi       *intmidi.Mirror
	tap        func([]float32)

	playing     bool
	droneNotes  []string
	droneGen    int // invalidates pending settle timers on change
	lastArpNote string

	presets map[string]intpreset.Preset

	eventCh   chan Event
	eventChMu sync.Mutex
}

// New builds a stopped instrument with the default preset per layer. No
// audio device is touched until Play.
func New(sampleRate int, opts ...Option) (*Instrument, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	in := &Instrument{
		sampleRate: sampleRate,
		clock:      intvclock.New(),
		seq:        intarp.New(),
		visual:     intvisual.Null{},
		presets:    make(map[string]intpreset.Preset),
	}
	for _, opt := range opts {
		opt(in)
	}
	var mopts []intch.Option
	if in.tap != nil {
		mopts = append(mopts, intch.WithSampleTap(in.tap))
	}
	in.mixer = intch.NewManager(sampleRate, mopts...)

	hour, minute, second, arpv := intpreset.Defaults()
	in.presets[LayerHour] = hour
	in.presets[LayerMinute] = minute
	in.presets[LayerSecond] = second
	in.presets[LayerArp] = arpv
	in.mixer.CreateChannel(LayerHour, hour)
	in.mixer.CreateChannel(LayerMinute, minute)
	in.mixer.CreateChannel(LayerSecond, second)
	in.mixer.SetArpPreset(arpv)

	in.seq.OnNote(in.handleArpNote)
	in.clock.Subscribe("engine", in.handleTransition)
	return in, nil
}

// Play opens the audio device and starts the clock. Must be called as a
// consequence of a user action; the audio context cannot start on its own.
// Idempotent while playing.
func (in *Instrument) Play() error {
	in.mu.Lock()
	if in.playing {
		in.mu.Unlock()
		return nil
	}
	if err := in.mixer.Start(); err != nil {
		in.mu.Unlock()
		return err
	}
	in.playing = true
	in.mu.Unlock()

	in.attackDrone()
	in.refreshArpPool()
	in.clock.Start()
	s := in.seq.Settings()
	if s.Enabled {
		in.seq.Start()
	}
	return nil
}

// playSilent is the device-less Play used by offline rendering and tests.
func (in *Instrument) playSilent() {
	in.mu.Lock()
	if in.playing {
		in.mu.Unlock()
		return
	}
	in.mixer.StartSilent()
	in.playing = true
	in.mu.Unlock()
	in.attackDrone()
	in.refreshArpPool()
}

// Stop halts the clock and the arpeggiator, releases every sounding note,
// and closes the audio device. The virtual time position is preserved, so a
// later Play resumes where it left off.
func (in *Instrument) Stop() {
	in.mu.Lock()
	if !in.playing {
		in.mu.Unlock()
		return
	}
	in.playing = false
	in.droneGen++
	drone := in.droneNotes
	in.droneNotes = nil
	in.mu.Unlock()

	in.clock.Stop()
	in.seq.Stop()
	in.mixer.TriggerRelease(LayerHour)
	in.mixer.ReleaseArp()
	if len(drone) > 0 {
		in.midi.ChordOff(LayerHour, drone)
	}
	in.mixer.Stop()
	in.sendEvent(Event{Kind: EventStopped, Time: in.clock.Now()})
}

// Playing reports whether the instrument is running.
func (in *Instrument) Playing() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.playing
}

// Watch returns a buffered channel of engine events. Only the most recent
// Watch channel receives events; receive promptly, the engine drops events
// rather than block.
func (in *Instrument) Watch() <-chan Event {
	ch := make(chan Event, 16)
	in.eventChMu.Lock()
	in.eventCh = ch
	in.eventChMu.Unlock()
	return ch
}

func (in *Instrument) sendEvent(ev Event) {
	in.eventChMu.Lock()
	ch := in.eventCh
	in.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
		}
	}
}

// handleTransition runs on the clock goroutine for every boundary crossing,
// in second, minute, hour order within a tick.
func (in *Instrument) handleTransition(tr intvclock.Transition) {
	if !in.Playing() {
		return
	}
	now := in.clock.Now()
	state := inttheory.MapTime(now.Hour, now.Minute, now.Second)

	switch tr.Kind {
	case intvclock.KindSecond:
		note := inttheory.CurrentNote(state, secondOctave)
		in.mixer.PlayNote(LayerSecond, note, secondNoteDuration)
		in.visual.TriggerSecond(note)
		in.mirrorTimedNote(LayerSecond, note, 80, secondNoteDuration)
		in.sendEvent(Event{Kind: EventSecondTick, Time: now, HourPosition: state.Hour.Position, Note: note})
	case intvclock.KindMinute:
		// The minute layer always voices the trichord's middle note; the
		// walking note belongs to the second layer.
		note := inttheory.NoteAt(state, 1, minuteOctave)
		in.mixer.PlayNote(LayerMinute, note, minuteNoteDuration)
		in.visual.TriggerMinute(note)
		in.mirrorTimedNote(LayerMinute, note, 90, minuteNoteDuration)
		// A quarter boundary moves the transposition, which changes the
		// drone chord even though the hour did not.
		in.retuneDroneIfChanged(state)
		in.refreshArpPool()
		in.sendEvent(Event{Kind: EventMinuteTick, Time: now, HourPosition: state.Hour.Position, Note: note})
	case intvclock.KindHour:
		in.retuneDroneIfChanged(state)
		in.refreshArpPool()
		chord := inttheory.CurrentChord(state, hourOctave)
		in.sendEvent(Event{Kind: EventHourChange, Time: now, HourPosition: state.Hour.Position, Notes: chord})
	}
}

// attackDrone starts the standing chord for the current time.
func (in *Instrument) attackDrone() {
	now := in.clock.Now()
	state := inttheory.MapTime(now.Hour, now.Minute, now.Second)
	chord := inttheory.CurrentChord(state, hourOctave)

	in.mu.Lock()
	if !in.playing {
		in.mu.Unlock()
		return
	}
	in.droneNotes = append([]string(nil), chord...)
	in.droneGen++
	in.mu.Unlock()

	in.mixer.TriggerAttackChord(LayerHour, chord)
	in.visual.TriggerHour(chord)
	in.midi.ChordOn(LayerHour, chord, 70)
}

// retuneDroneIfChanged swaps the standing chord when the mapped chord moved:
// release the old notes, let them settle briefly, then attack the new ones.
// A stale settle timer (chord moved again, or Stop) is abandoned.
func (in *Instrument) retuneDroneIfChanged(state inttheory.State) {
	chord := inttheory.CurrentChord(state, hourOctave)

	in.mu.Lock()
	if !in.playing || equalNotes(in.droneNotes, chord) {
		in.mu.Unlock()
		return
	}
	old := in.droneNotes
	in.droneNotes = append([]string(nil), chord...)
	in.droneGen++
	gen := in.droneGen
	in.mu.Unlock()

	if len(old) > 0 {
		in.mixer.TriggerRelease(LayerHour)
		in.midi.ChordOff(LayerHour, old)
	}
	time.AfterFunc(droneSettleDelay, func() {
		in.mu.Lock()
		stale := !in.playing || in.droneGen != gen
		in.mu.Unlock()
		if stale {
			return
		}
		in.mixer.TriggerAttackChord(LayerHour, chord)
		in.visual.TriggerHour(chord)
		in.midi.ChordOn(LayerHour, chord, 70)
	})
}

// refreshArpPool feeds the arpeggiator the active chord across two octaves.
// The pool changes only on minute and hour boundaries so a running pattern
// is not rebuilt on every second.
func (in *Instrument) refreshArpPool() {
	now := in.clock.Now()
	state := inttheory.MapTime(now.Hour, now.Minute, now.Second)
	low := inttheory.CurrentChord(state, minuteOctave)
	high := inttheory.CurrentChord(state, minuteOctave+1)
	in.seq.SetNotes(append(low, high...))
}

func (in *Instrument) handleArpNote(note string, at time.Time) {
	if !in.Playing() {
		return
	}
	in.mixer.PlayArpNote(note)
	in.visual.TriggerArp(note)
	// The arp voice is monophonic: close the previous mirrored note before
	// opening the next.
	in.mu.Lock()
	prev := in.lastArpNote
	in.lastArpNote = note
	in.mu.Unlock()
	if prev != "" {
		in.midi.NoteOff(LayerArp, prev)
	}
	in.midi.NoteOn(LayerArp, note, 100)
	in.sendEvent(Event{Kind: EventArpNote, Time: in.clock.Now(), Note: note})
}

// mirrorTimedNote sends a note-on now and the matching note-off when the
// synth's own scheduled release fires.
func (in *Instrument) mirrorTimedNote(layer, note string, velocity uint8, d time.Duration) {
	if !in.midi.Opened() {
		return
	}
	in.midi.NoteOn(layer, note, velocity)
	time.AfterFunc(d, func() {
		in.midi.NoteOff(layer, note)
	})
}

// ApplyPreset routes a preset to a layer, choosing between a live parameter
// patch and a full channel rebuild. Presets sharing a base id describe the
// same patch, so continuous edits of a loaded preset update the running
// chain without interrupting sound; selecting a different preset rebuilds
// the chain and, on the hour layer, re-attacks the drone.
func (in *Instrument) ApplyPreset(layer string, p intpreset.Preset) {
	p = p.Normalize()
	in.mu.Lock()
	prev, known := in.presets[layer]
	in.presets[layer] = p
	in.mu.Unlock()

	if layer == LayerArp {
		in.mixer.SetArpPreset(p)
		return
	}
	if known && prev.BaseID() == p.BaseID() {
		in.mixer.UpdateSynthParams(layer, p)
		return
	}
	in.mixer.CreateChannel(layer, p)
	if layer == LayerHour && in.Playing() {
		in.attackDrone()
	}
}

// Preset returns the preset currently assigned to a layer.
func (in *Instrument) Preset(layer string) (intpreset.Preset, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	p, ok := in.presets[layer]
	return p, ok
}

// SetArp reconfigures the arpeggiator. Glide time is forwarded to the arp
// voice as portamento.
func (in *Instrument) SetArp(ch intarp.Change) {
	in.seq.Apply(ch)
	s := in.seq.Settings()
	in.mixer.SetArpPortamento(time.Duration(s.GlideMs * float64(time.Millisecond)))
	if !in.Playing() {
		// Apply may have started the sequencer; it must not run while the
		// instrument is stopped.
		in.seq.Stop()
	}
}

// ArpSettings returns the current arpeggiator configuration.
func (in *Instrument) ArpSettings() intarp.Settings {
	return in.seq.Settings()
}

// SetSpeed scales the virtual clock rate; 1 is real time. Values are
// clamped to the supported range.
func (in *Instrument) SetSpeed(speed float64) { in.clock.SetSpeed(speed) }

// Speed returns the current clock rate multiplier.
func (in *Instrument) Speed() float64 { return in.clock.Speed() }

// SetReverse runs the virtual clock backwards.
func (in *Instrument) SetReverse(reverse bool) { in.clock.SetReverse(reverse) }

// Reversed reports whether the clock runs backwards.
func (in *Instrument) Reversed() bool { return in.clock.Reversed() }

// SetVirtual jumps the virtual clock to t.
func (in *Instrument) SetVirtual(t time.Time) { in.clock.SetVirtual(t) }

// ResetClock resynchronizes the virtual clock with the wall clock.
func (in *Instrument) ResetClock() { in.clock.Reset() }

// Now returns the current virtual clock reading.
func (in *Instrument) Now() intvclock.Time { return in.clock.Now() }

// State returns the theory mapping for the current virtual time.
func (in *Instrument) State() inttheory.State {
	now := in.clock.Now()
	return inttheory.MapTime(now.Hour, now.Minute, now.Second)
}

// SetMasterVolume sets the master level in dB; at or below -60 the output
// is muted.
func (in *Instrument) SetMasterVolume(db float64) { in.mixer.SetMasterVolume(db) }

// SetLayerVolume sets one layer's level in dB with the same mute floor.
func (in *Instrument) SetLayerVolume(layer string, db float64) {
	in.mixer.SetChannelVolume(layer, db)
}

// SetEQBand sets a master EQ band gain (0-4, 1.0 = unity). Lock-free, takes
// effect immediately on the audio thread.
func (in *Instrument) SetEQBand(band int, gain float32) { in.mixer.SetEQBand(band, gain) }

func equalNotes(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
