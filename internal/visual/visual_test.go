package visual

import (
	"math"
	"testing"
)

func TestTriggersSetPulses(t *testing.T) {
	s := NewScene()
	s.TriggerSecond("C5")  // pc 0
	s.TriggerMinute("E4")  // pc 4
	s.TriggerArp("G4")     // pc 7
	f := s.Snapshot()
	if f.Second[0] != 1 || f.Minute[4] != 1 || f.Arp[7] != 1 {
		t.Errorf("pulses = sec %v min %v arp %v", f.Second[0], f.Minute[4], f.Arp[7])
	}
	if f.LastSecondPC != 0 {
		t.Errorf("last second pc = %d", f.LastSecondPC)
	}
}

func TestHourChordReplacesMarkers(t *testing.T) {
	s := NewScene()
	s.TriggerHour([]string{"C3", "E3", "G3"})
	s.TriggerHour([]string{"D3", "F3", "A3"})
	f := s.Snapshot()
	want := [12]bool{}
	want[2], want[5], want[9] = true, true, true
	if f.HourChord != want {
		t.Errorf("hour chord = %v", f.HourChord)
	}
	// Flares from the first chord still decay rather than vanish.
	if f.Hour[0] != 1 {
		t.Errorf("previous chord flare dropped, got %v", f.Hour[0])
	}
}

func TestAdvanceDecays(t *testing.T) {
	s := NewScene()
	s.TriggerSecond("C5")
	s.Advance(0.35) // one time constant
	f := s.Snapshot()
	want := math.Exp(-1)
	if math.Abs(f.Second[0]-want) > 1e-9 {
		t.Errorf("decayed pulse = %v, want %v", f.Second[0], want)
	}
	// Decay to the floor snaps to exactly zero.
	s.Advance(10)
	if f = s.Snapshot(); f.Second[0] != 0 {
		t.Errorf("pulse should hit zero, got %v", f.Second[0])
	}
}

func TestBadNotesIgnored(t *testing.T) {
	s := NewScene()
	s.TriggerSecond("xyz")
	s.TriggerHour([]string{"??", "C3"})
	f := s.Snapshot()
	if f.LastSecondPC != -1 {
		t.Error("bad second note recorded")
	}
	if !f.HourChord[0] {
		t.Error("valid chord member dropped with the bad one")
	}
}

func TestNullEngineIsSafe(t *testing.T) {
	var e Engine = Null{}
	e.TriggerSecond("C4")
	e.TriggerMinute("C4")
	e.TriggerHour([]string{"C4"})
	e.TriggerArp("C4")
}
