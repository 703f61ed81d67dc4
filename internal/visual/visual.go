// Package visual tracks the instrument's on-screen state: per-layer pulses
// keyed by pitch class that flare on note events and decay over time. The
// package owns no rendering; frontends snapshot a Frame each display tick
// and draw it however they like (ebiten clock face, terminal grid).
package visual

import (
	"math"
	"sync"

	"github.com/cbegin/toneclock-go/internal/theory"
)

// Engine receives note events from the orchestrator. Implementations must be
// safe for calls from the clock's event goroutine.
type Engine interface {
	TriggerSecond(note string)
	TriggerMinute(note string)
	TriggerHour(notes []string)
	TriggerArp(note string)
}

// Null discards every event. Headless runs wire it in place of a scene.
type Null struct{}

func (Null) TriggerSecond(string) {}
func (Null) TriggerMinute(string) {}
func (Null) TriggerHour([]string) {}
func (Null) TriggerArp(string)    {}

// Layer pulse decay time constants. Seconds flash, the hour drone lingers.
const (
	secondDecaySec = 0.35
	minuteDecaySec = 1.2
	arpDecaySec    = 0.25
	hourDecaySec   = 6.0
)

// Frame is a point-in-time copy of the scene for rendering. Pulse values are
// 0..1 intensities indexed by pitch class.
type Frame struct {
	Second [12]float64
	Minute [12]float64
	Arp    [12]float64
	Hour   [12]float64
	// HourChord marks the pitch classes of the standing drone chord.
	HourChord [12]bool
	// LastSecondPC is the most recent second-layer pitch class, -1 before
	// the first event.
	LastSecondPC int
}

// Scene is the concrete Engine. Zero value is not usable; call NewScene.
type Scene struct {
	mu    sync.Mutex
	frame Frame
}

func NewScene() *Scene {
	s := &Scene{}
	s.frame.LastSecondPC = -1
	return s
}

func (s *Scene) TriggerSecond(note string) {
	pc, ok := pitchClass(note)
	if !ok {
		return
	}
	s.mu.Lock()
	s.frame.Second[pc] = 1
	s.frame.LastSecondPC = pc
	s.mu.Unlock()
}

func (s *Scene) TriggerMinute(note string) {
	pc, ok := pitchClass(note)
	if !ok {
		return
	}
	s.mu.Lock()
	s.frame.Minute[pc] = 1
	s.mu.Unlock()
}

// TriggerHour replaces the standing chord markers and flares each of its
// pitch classes.
func (s *Scene) TriggerHour(notes []string) {
	s.mu.Lock()
	s.frame.HourChord = [12]bool{}
	for _, n := range notes {
		if pc, ok := pitchClass(n); ok {
			s.frame.HourChord[pc] = true
			s.frame.Hour[pc] = 1
		}
	}
	s.mu.Unlock()
}

func (s *Scene) TriggerArp(note string) {
	pc, ok := pitchClass(note)
	if !ok {
		return
	}
	s.mu.Lock()
	s.frame.Arp[pc] = 1
	s.mu.Unlock()
}

// Advance decays every pulse by dt of wall time. Renderers call it once per
// display tick before Snapshot.
func (s *Scene) Advance(dt float64) {
	if dt <= 0 {
		return
	}
	s.mu.Lock()
	decayAll(&s.frame.Second, dt, secondDecaySec)
	decayAll(&s.frame.Minute, dt, minuteDecaySec)
	decayAll(&s.frame.Arp, dt, arpDecaySec)
	decayAll(&s.frame.Hour, dt, hourDecaySec)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current frame.
func (s *Scene) Snapshot() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

func decayAll(pulses *[12]float64, dt, tau float64) {
	k := math.Exp(-dt / tau)
	for i := range pulses {
		pulses[i] *= k
		if pulses[i] < 1e-3 {
			pulses[i] = 0
		}
	}
}

func pitchClass(note string) (int, bool) {
	midi, ok := theory.ParseNote(note)
	if !ok {
		return 0, false
	}
	return midi % 12, true
}
