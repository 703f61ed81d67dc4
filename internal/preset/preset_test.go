package preset

import "testing"

func TestModifiedDerivesIDWithoutMutating(t *testing.T) {
	p, ok := Get("H01")
	if !ok {
		t.Fatal("library preset H01 missing")
	}
	m := p.Modified()
	if p.ID != "H01" {
		t.Errorf("original mutated: %q", p.ID)
	}
	if m.ID != "H01*" {
		t.Errorf("modified id = %q, want H01*", m.ID)
	}
	if m.BaseID() != "H01" || p.BaseID() != "H01" {
		t.Errorf("base ids differ: %q vs %q", m.BaseID(), p.BaseID())
	}
	if !m.IsModified() || p.IsModified() {
		t.Error("modified flags wrong")
	}
	// Modifying twice keeps a single marker.
	if mm := m.Modified(); mm.ID != "H01*" {
		t.Errorf("double modify id = %q", mm.ID)
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	p := Preset{ID: "X"}
	n := p.Normalize()
	if n.Oscillator != "sine" {
		t.Errorf("oscillator default = %q", n.Oscillator)
	}
	if n.Filter.Type != "lowpass" || n.Filter.Cutoff != 8000 || n.Filter.Q != 1 {
		t.Errorf("filter defaults = %+v", n.Filter)
	}
	if n.Effects.TremoloDepth != 0 {
		t.Errorf("missing tremolo should stay 0, got %f", n.Effects.TremoloDepth)
	}
	if n.Effects.GateThreshold != -100 {
		t.Errorf("missing gate threshold should floor to -100, got %f", n.Effects.GateThreshold)
	}
	if n.Envelope.Attack <= 0 || n.Envelope.Release <= 0 {
		t.Errorf("envelope defaults = %+v", n.Envelope)
	}
}

func TestNormalizeClampsRanges(t *testing.T) {
	p := Preset{
		ID:          "X",
		Envelope:    Envelope{Attack: -5, Decay: 100, Sustain: 3, Release: -1},
		Filter:      Filter{Type: "lowpass", Cutoff: 99999, Q: 100},
		Effects:     Effects{ReverbWet: 2, DelayFeedback: 5, GateThreshold: -500},
		DetuneCents: 9999,
		VolumeDB:    40,
	}
	n := p.Normalize()
	if n.Envelope.Sustain != 1 || n.Envelope.Attack != 0.001 {
		t.Errorf("envelope clamp = %+v", n.Envelope)
	}
	if n.Filter.Cutoff != 20000 || n.Filter.Q != 20 {
		t.Errorf("filter clamp = %+v", n.Filter)
	}
	if n.Effects.ReverbWet != 1 || n.Effects.DelayFeedback != 0.95 {
		t.Errorf("effects clamp = %+v", n.Effects)
	}
	if n.Effects.GateThreshold != -100 {
		t.Errorf("gate clamp = %f", n.Effects.GateThreshold)
	}
	if n.DetuneCents != 1200 || n.VolumeDB != 6 {
		t.Errorf("detune/volume clamp = %f %f", n.DetuneCents, n.VolumeDB)
	}
}

func TestLibraryLookup(t *testing.T) {
	if _, ok := Get("nope"); ok {
		t.Error("unknown id should miss")
	}
	all := All()
	if len(all) == 0 {
		t.Fatal("library empty")
	}
	seen := map[string]bool{}
	for _, p := range all {
		if seen[p.ID] {
			t.Errorf("duplicate library id %q", p.ID)
		}
		seen[p.ID] = true
	}
	h, m, s, a := Defaults()
	for _, p := range []Preset{h, m, s, a} {
		if p.ID == "" {
			t.Error("default preset missing from library")
		}
	}
}
