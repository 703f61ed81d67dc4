package channels

import (
	"testing"
	"time"

	"github.com/cbegin/toneclock-go/internal/preset"
)

const testRate = 48000

func dryPreset(id string) preset.Preset {
	return preset.Preset{
		ID:         id,
		Oscillator: "sine",
		Envelope:   preset.Envelope{Attack: 0.005, Decay: 0.05, Sustain: 0.8, Release: 0.05},
		Filter:     preset.Filter{Type: "lowpass", Cutoff: 8000, Q: 1},
		VolumeDB:   0,
	}
}

func renderEnergy(m *Manager, frames int) float64 {
	buf := make([]float32, frames*2)
	m.Process(buf)
	var sum float64
	for _, s := range buf {
		sum += float64(s) * float64(s)
	}
	return sum
}

func TestPlayBeforeStartIsNoOp(t *testing.T) {
	m := NewManager(testRate)
	m.CreateChannel("hour", dryPreset("H01"))
	m.PlayNote("hour", "C4", 100*time.Millisecond)
	m.PlayArpNote("C4")
	if m.ArpVoiceReady() {
		t.Error("arp voice should not build before audio starts")
	}
	if e := renderEnergy(m, 1024); e != 0 {
		t.Errorf("pre-start render energy = %f, want 0", e)
	}
}

func TestTriggerAttackProducesAudio(t *testing.T) {
	m := NewManager(testRate)
	m.StartSilent()
	m.CreateChannel("hour", dryPreset("H01"))
	m.TriggerAttackChord("hour", []string{"C3", "E3", "G3"})
	if e := renderEnergy(m, 4096); e == 0 {
		t.Error("sustained chord produced no energy")
	}
	got := m.ActiveNotes("hour")
	if len(got) != 3 {
		t.Fatalf("active notes = %v, want 3 entries", got)
	}
}

func TestTriggerReleaseClearsTracking(t *testing.T) {
	m := NewManager(testRate)
	m.StartSilent()
	m.CreateChannel("hour", dryPreset("H01"))
	m.TriggerAttackChord("hour", []string{"C3", "E3"})
	m.TriggerRelease("hour")
	if got := m.ActiveNotes("hour"); len(got) != 0 {
		t.Errorf("active notes after release = %v", got)
	}
	// Releasing again with nothing tracked must be harmless.
	m.TriggerRelease("hour")
	// Let the 50ms release envelope finish, then expect silence.
	renderEnergy(m, testRate/2)
	if e := renderEnergy(m, 2048); e > 1e-6 {
		t.Errorf("energy after release tail = %g", e)
	}
}

func TestTriggerReleaseNotesPartial(t *testing.T) {
	m := NewManager(testRate)
	m.StartSilent()
	m.CreateChannel("minute", dryPreset("M01"))
	m.TriggerAttackChord("minute", []string{"C4", "E4", "G4"})
	m.TriggerReleaseNotes("minute", []string{"E4", "B9"})
	got := m.ActiveNotes("minute")
	if len(got) != 2 || got[0] != "C4" || got[1] != "G4" {
		t.Errorf("active notes = %v, want [C4 G4]", got)
	}
}

func TestPlayNoteReleasesAfterDuration(t *testing.T) {
	m := NewManager(testRate)
	m.StartSilent()
	m.CreateChannel("second", dryPreset("S01"))
	m.PlayNote("second", "C5", 20*time.Millisecond)
	if e := renderEnergy(m, 2048); e == 0 {
		t.Error("note produced no energy during its duration")
	}
	time.Sleep(80 * time.Millisecond)
	renderEnergy(m, testRate/2) // drain the release tail
	if e := renderEnergy(m, 2048); e > 1e-6 {
		t.Errorf("energy after scheduled release = %g", e)
	}
}

func TestDelayEchoesAfterNoteEnds(t *testing.T) {
	m := NewManager(testRate)
	m.StartSilent()
	p := dryPreset("H01")
	p.Effects.DelayWet = 1
	p.Effects.DelayTimeMs = 200
	p.Effects.DelayFeedback = 0.5
	m.CreateChannel("hour", p)
	m.TriggerAttack("hour", "C5")
	renderEnergy(m, testRate/20) // 50 ms of dry note
	m.TriggerRelease("hour")
	renderEnergy(m, testRate/10) // drain the release tail
	// The note is over; the 200 ms delay line should still speak.
	if e := renderEnergy(m, testRate/2); e == 0 {
		t.Error("no delay echo after the note ended")
	}
}

func TestUpdateKeepsGenerationAcrossManyTweaks(t *testing.T) {
	m := NewManager(testRate)
	m.StartSilent()
	p := dryPreset("H01")
	m.CreateChannel("hour", p)
	gen0, ok := m.Generation("hour")
	if !ok {
		t.Fatal("channel missing")
	}
	for i := 0; i < 50; i++ {
		p.Filter.Cutoff = 500 + float64(i)*100
		p = p.Modified()
		m.UpdateSynthParams("hour", p)
	}
	gen1, _ := m.Generation("hour")
	if gen1 != gen0 {
		t.Errorf("generation changed across parameter tweaks: %d -> %d", gen0, gen1)
	}
	got, _ := m.Preset("hour")
	if got.Filter.Cutoff != 5400 {
		t.Errorf("last tweak not applied, cutoff = %f", got.Filter.Cutoff)
	}
}

func TestCreateChannelAdvancesGeneration(t *testing.T) {
	m := NewManager(testRate)
	m.StartSilent()
	m.CreateChannel("hour", dryPreset("H01"))
	gen0, _ := m.Generation("hour")
	m.TriggerAttack("hour", "C3")
	m.CreateChannel("hour", dryPreset("H02"))
	gen1, _ := m.Generation("hour")
	if gen1 == gen0 {
		t.Error("rebuild should advance the generation")
	}
	if got := m.ActiveNotes("hour"); len(got) != 0 {
		t.Errorf("rebuild should drop tracked notes, got %v", got)
	}
}

func TestMissingChannelOpsAreNoOps(t *testing.T) {
	m := NewManager(testRate)
	m.StartSilent()
	m.UpdateSynthParams("nope", dryPreset("X"))
	m.SetChannelVolume("nope", -10)
	m.TriggerAttack("nope", "C4")
	m.TriggerRelease("nope")
	m.TriggerReleaseNotes("nope", []string{"C4"})
	m.DisposeChannel("nope")
	if _, ok := m.Generation("nope"); ok {
		t.Error("missing channel reported a generation")
	}
}

func TestMuteFloorSilencesChannel(t *testing.T) {
	m := NewManager(testRate)
	m.StartSilent()
	m.CreateChannel("hour", dryPreset("H01"))
	m.TriggerAttack("hour", "A3")
	m.SetChannelVolume("hour", MuteFloorDB)
	// Let the gain ramp settle, then expect silence within filter-state noise.
	renderEnergy(m, testRate)
	if e := renderEnergy(m, 2048); e > 1e-12 {
		t.Errorf("muted channel still audible, energy = %g", e)
	}
}

func TestMasterMuteFloor(t *testing.T) {
	m := NewManager(testRate)
	m.StartSilent()
	m.CreateChannel("hour", dryPreset("H01"))
	m.TriggerAttack("hour", "A3")
	m.SetMasterVolume(-80)
	renderEnergy(m, testRate)
	if e := renderEnergy(m, 2048); e > 1e-12 {
		t.Errorf("master mute still audible, energy = %g", e)
	}
}

func TestArpVoiceBuildsLazilyWithPendingPreset(t *testing.T) {
	m := NewManager(testRate)
	m.StartSilent()
	p, _ := preset.Get("A02")
	m.SetArpPreset(p)
	if m.ArpVoiceReady() {
		t.Fatal("setting the preset alone must not build the voice")
	}
	m.SetArpPortamento(50 * time.Millisecond)
	m.PlayArpNote("C4")
	if !m.ArpVoiceReady() {
		t.Fatal("first note should build the voice")
	}
	if e := renderEnergy(m, 4096); e == 0 {
		t.Error("arp voice produced no energy")
	}
	// Applying a preset after the voice exists goes straight through.
	m.SetArpPreset(dryPreset("A01"))
	m.ReleaseArp()
}

func TestDisposeAllResetsArpVoice(t *testing.T) {
	m := NewManager(testRate)
	m.StartSilent()
	m.CreateChannel("hour", dryPreset("H01"))
	m.PlayArpNote("C4")
	m.DisposeAll()
	if _, ok := m.Generation("hour"); ok {
		t.Error("channel survived DisposeAll")
	}
	if m.ArpVoiceReady() {
		t.Error("arp voice survived DisposeAll")
	}
}

func TestDBToGain(t *testing.T) {
	if g := dbToGain(0); g != 1 {
		t.Errorf("0 dB gain = %f", g)
	}
	if g := dbToGain(-60); g != 0 {
		t.Errorf("floor gain = %f, want hard mute", g)
	}
	if g := dbToGain(-59); g <= 0 {
		t.Errorf("-59 dB must stay audible, gain = %f", g)
	}
	if g := dbToGain(-6); g < 0.5 || g > 0.502 {
		t.Errorf("-6 dB gain = %f", g)
	}
}
