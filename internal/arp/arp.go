// Package arp steps through an ordered playback sequence built from the
// current note pool, invoking a callback per step at a musical-subdivision
// rate. It only supplies timing; portamento between steps is the audio
// channel manager's job.
package arp

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/cbegin/toneclock-go/internal/theory"
)

// Pattern selects the step order over the note pool.
type Pattern string

const (
	PatternUp     Pattern = "up"
	PatternDown   Pattern = "down"
	PatternUpDown Pattern = "updown"
	PatternDownUp Pattern = "downup"
	PatternRandom Pattern = "random"
)

// Settings configure the sequencer. Rate is a musical subdivision name
// ("4n", "8n", "16n", "8t", ...) interpreted at BPM.
type Settings struct {
	Enabled bool
	Pattern Pattern
	Rate    string
	BPM     float64
	GlideMs float64
}

// DefaultSettings is a disabled eighth-note up arpeggio at 120 BPM.
func DefaultSettings() Settings {
	return Settings{Pattern: PatternUp, Rate: "8n", BPM: 120, GlideMs: 80}
}

// Change is a partial settings update; nil fields keep their current value.
type Change struct {
	Enabled *bool
	Pattern *Pattern
	Rate    *string
	BPM     *float64
	GlideMs *float64
}

// beats per step for each subdivision name.
var subdivisionBeats = map[string]float64{
	"1n":  4,
	"2n":  2,
	"4n":  1,
	"8n":  0.5,
	"16n": 0.25,
	"32n": 0.125,
	"2t":  4.0 / 3.0,
	"4t":  2.0 / 3.0,
	"8t":  1.0 / 3.0,
	"16t": 1.0 / 6.0,
}

// StepDuration converts a subdivision name at a tempo into wall time.
// Unknown names fall back to eighth notes.
func StepDuration(rate string, bpm float64) time.Duration {
	beats, ok := subdivisionBeats[rate]
	if !ok {
		beats = 0.5
	}
	if bpm <= 0 {
		bpm = 120
	}
	return time.Duration(beats * 60 / bpm * float64(time.Second))
}

// BuildSequence produces the ordered playback sequence for a pattern.
// Up-down and down-up drop the duplicate endpoint re-triggers for pools of
// three or more notes and degrade to plain up/down below that. Random is a
// single shuffle, fixed for the whole run.
func BuildSequence(notes []string, p Pattern) []string {
	if len(notes) == 0 {
		return nil
	}
	asc := make([]string, len(notes))
	copy(asc, notes)
	sort.SliceStable(asc, func(i, j int) bool {
		a, _ := theory.ParseNote(asc[i])
		b, _ := theory.ParseNote(asc[j])
		return a < b
	})
	switch p {
	case PatternDown:
		return reversed(asc)
	case PatternUpDown:
		if len(asc) <= 2 {
			return asc
		}
		seq := make([]string, 0, 2*len(asc)-2)
		seq = append(seq, asc...)
		for i := len(asc) - 2; i >= 1; i-- {
			seq = append(seq, asc[i])
		}
		return seq
	case PatternDownUp:
		if len(asc) <= 2 {
			return reversed(asc)
		}
		desc := reversed(asc)
		seq := make([]string, 0, 2*len(desc)-2)
		seq = append(seq, desc...)
		for i := len(desc) - 2; i >= 1; i-- {
			seq = append(seq, desc[i])
		}
		return seq
	case PatternRandom:
		shuffled := make([]string, len(asc))
		copy(shuffled, asc)
		rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		return shuffled
	default: // PatternUp
		return asc
	}
}

func reversed(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

// Sequencer steps through the built sequence on its own goroutine. Stop and
// restart are synchronous; no step callback runs after Stop returns.
type Sequencer struct {
	mu       sync.Mutex
	settings Settings
	notes    []string
	seq      []string
	pos      int
	onNote   func(note string, at time.Time)
	stop     chan struct{}
	done     chan struct{}
	running  bool
}

// New creates a stopped sequencer with default settings.
func New() *Sequencer {
	return &Sequencer{settings: DefaultSettings()}
}

// OnNote registers the per-step callback. It runs on the sequencer goroutine.
func (s *Sequencer) OnNote(fn func(note string, at time.Time)) {
	s.mu.Lock()
	s.onNote = fn
	s.mu.Unlock()
}

// SetNotes replaces the note pool. If running, the stepped sequence is
// regenerated and restarted from the top; a restart on trichord change is
// expected, not a glitch.
func (s *Sequencer) SetNotes(notes []string) {
	s.mu.Lock()
	s.notes = append([]string(nil), notes...)
	running := s.running
	s.mu.Unlock()
	if running {
		s.Stop()
		s.Start()
	}
}

// Settings returns a copy of the current settings.
func (s *Sequencer) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Apply merges a partial change. Enabling starts, disabling stops, and a
// pattern or rate change while running restarts the sequence.
func (s *Sequencer) Apply(ch Change) {
	s.mu.Lock()
	prev := s.settings
	if ch.Enabled != nil {
		s.settings.Enabled = *ch.Enabled
	}
	if ch.Pattern != nil {
		s.settings.Pattern = *ch.Pattern
	}
	if ch.Rate != nil {
		s.settings.Rate = *ch.Rate
	}
	if ch.BPM != nil {
		s.settings.BPM = *ch.BPM
	}
	if ch.GlideMs != nil {
		s.settings.GlideMs = *ch.GlideMs
	}
	cur := s.settings
	running := s.running
	s.mu.Unlock()

	switch {
	case !prev.Enabled && cur.Enabled:
		s.Start()
	case prev.Enabled && !cur.Enabled:
		s.Stop()
	case running && (prev.Pattern != cur.Pattern || prev.Rate != cur.Rate || prev.BPM != cur.BPM):
		s.Stop()
		s.Start()
	}
}

// Start builds the sequence and begins stepping. Silent no-op when disabled,
// already running, or the note pool is empty.
func (s *Sequencer) Start() {
	s.mu.Lock()
	if s.running || !s.settings.Enabled || len(s.notes) == 0 {
		s.mu.Unlock()
		return
	}
	s.seq = BuildSequence(s.notes, s.settings.Pattern)
	s.pos = 0
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	period := StepDuration(s.settings.Rate, s.settings.BPM)
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		s.step(time.Now())
		for {
			select {
			case <-stop:
				return
			case at := <-ticker.C:
				s.step(at)
			}
		}
	}()
}

func (s *Sequencer) step(at time.Time) {
	s.mu.Lock()
	if !s.running || len(s.seq) == 0 {
		s.mu.Unlock()
		return
	}
	note := s.seq[s.pos%len(s.seq)]
	s.pos++
	fn := s.onNote
	s.mu.Unlock()
	if fn != nil {
		fn(note, at)
	}
}

// Stop cancels the step loop and joins it. Idempotent.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	close(stop)
	<-done
}

// Running reports whether the step loop is active.
func (s *Sequencer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
