package toneclock

import (
	"testing"
	"time"

	intarp "github.com/cbegin/toneclock-go/internal/arp"
	intpreset "github.com/cbegin/toneclock-go/internal/preset"
)

const testRate = 48000

func seeded(t *testing.T, hour, min, sec int) *Instrument {
	t.Helper()
	in, err := New(testRate)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	in.SetVirtual(time.Date(2025, 6, 1, hour, min, sec, 0, time.UTC))
	return in
}

func TestPlayStopLifecycle(t *testing.T) {
	in := seeded(t, 3, 0, 0)
	if in.Playing() {
		t.Fatal("playing before start")
	}
	in.playSilent()
	if !in.Playing() {
		t.Fatal("not playing after start")
	}
	if got := in.mixer.ActiveNotes(LayerHour); len(got) != 3 {
		t.Errorf("drone notes = %v, want a trichord", got)
	}
	in.playSilent() // idempotent
	in.Stop()
	if in.Playing() {
		t.Error("still playing after stop")
	}
	if got := in.mixer.ActiveNotes(LayerHour); len(got) != 0 {
		t.Errorf("drone not released on stop: %v", got)
	}
	in.Stop() // idempotent
}

func TestSecondTickEmitsEvent(t *testing.T) {
	in := seeded(t, 3, 0, 0)
	events := in.Watch()
	in.playSilent()
	defer in.Stop()
	in.clock.Advance(1100 * time.Millisecond)

	select {
	case ev := <-events:
		if ev.Kind != EventSecondTick {
			t.Fatalf("first event kind = %v", ev.Kind)
		}
		if ev.Note == "" || ev.HourPosition != 3 {
			t.Errorf("event = %+v", ev)
		}
	default:
		t.Fatal("no event after crossing a second boundary")
	}
}

func TestHourChangeRetunesDrone(t *testing.T) {
	in := seeded(t, 2, 59, 59)
	in.playSilent()
	defer in.Stop()
	before := in.mixer.ActiveNotes(LayerHour)

	in.clock.Advance(1500 * time.Millisecond)
	// The drone re-attacks after a short settle delay.
	time.Sleep(droneSettleDelay + 100*time.Millisecond)

	after := in.mixer.ActiveNotes(LayerHour)
	if len(after) != 3 {
		t.Fatalf("drone after hour change = %v", after)
	}
	if equalNotes(before, after) {
		t.Errorf("drone unchanged across hour boundary: %v", after)
	}
	if got := in.State().Hour.Position; got != 3 {
		t.Errorf("hour position = %d, want 3", got)
	}
}

func TestQuarterBoundaryRetunesDrone(t *testing.T) {
	in := seeded(t, 4, 14, 59)
	in.playSilent()
	defer in.Stop()
	before := in.mixer.ActiveNotes(LayerHour)

	in.clock.Advance(1500 * time.Millisecond) // crosses 4:15, transposition 0 -> 1
	time.Sleep(droneSettleDelay + 100*time.Millisecond)

	after := in.mixer.ActiveNotes(LayerHour)
	if equalNotes(before, after) {
		t.Errorf("drone unchanged across quarter boundary: %v", after)
	}
}

func TestMinuteWithinQuarterKeepsDrone(t *testing.T) {
	in := seeded(t, 4, 3, 59)
	in.playSilent()
	defer in.Stop()
	before := in.mixer.ActiveNotes(LayerHour)

	in.clock.Advance(1500 * time.Millisecond) // crosses 4:04, same quarter
	time.Sleep(droneSettleDelay + 100*time.Millisecond)

	after := in.mixer.ActiveNotes(LayerHour)
	if !equalNotes(before, after) {
		t.Errorf("drone moved within a quarter: %v -> %v", before, after)
	}
}

func TestDiminishedHourStillDrones(t *testing.T) {
	in := seeded(t, 10, 0, 0)
	in.playSilent()
	defer in.Stop()
	if got := in.mixer.ActiveNotes(LayerHour); len(got) != 3 {
		t.Errorf("hour 10 drone = %v, want 3 notes", got)
	}
	if got := in.State().Hour.Position; got != 10 {
		t.Errorf("hour position = %d", got)
	}
}

func TestStopPreservesVirtualTime(t *testing.T) {
	in := seeded(t, 5, 0, 0)
	in.playSilent()
	in.clock.Advance(10 * time.Second)
	in.Stop()
	now := in.Now()
	if now.Hour != 5 || now.Minute != 0 || now.Second != 10 {
		t.Errorf("virtual time after stop = %+v", now)
	}
	in.playSilent()
	defer in.Stop()
	if got := in.Now(); got.Second != 10 {
		t.Errorf("virtual time reset by restart: %+v", got)
	}
}

func TestApplyPresetTweakKeepsChannel(t *testing.T) {
	in := seeded(t, 3, 0, 0)
	in.playSilent()
	defer in.Stop()
	gen0, ok := in.mixer.Generation(LayerHour)
	if !ok {
		t.Fatal("hour channel missing")
	}

	p, _ := in.Preset(LayerHour)
	edited := p.Modified()
	edited.Filter.Cutoff = 2000
	in.ApplyPreset(LayerHour, edited)

	gen1, _ := in.mixer.Generation(LayerHour)
	if gen1 != gen0 {
		t.Error("editing the loaded preset rebuilt the channel")
	}
	got, _ := in.Preset(LayerHour)
	if got.Filter.Cutoff != 2000 || !got.IsModified() {
		t.Errorf("preset after tweak = %+v", got)
	}
}

func TestApplyPresetSwapRebuildsChannel(t *testing.T) {
	in := seeded(t, 3, 0, 0)
	in.playSilent()
	defer in.Stop()
	gen0, _ := in.mixer.Generation(LayerHour)

	other, ok := intpreset.Get("H02")
	if !ok {
		t.Fatal("library preset H02 missing")
	}
	in.ApplyPreset(LayerHour, other)

	gen1, _ := in.mixer.Generation(LayerHour)
	if gen1 == gen0 {
		t.Error("selecting a different preset did not rebuild the channel")
	}
	if got := in.mixer.ActiveNotes(LayerHour); len(got) != 3 {
		t.Errorf("drone not re-attacked after swap: %v", got)
	}
}

func TestArpPlaysOverActiveChord(t *testing.T) {
	in := seeded(t, 3, 0, 0)
	events := in.Watch()
	in.playSilent()
	defer in.Stop()

	enabled := true
	bpm := 600.0
	rate := "16n"
	in.SetArp(intarp.Change{Enabled: &enabled, BPM: &bpm, Rate: &rate})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == EventArpNote {
				if ev.Note == "" {
					t.Fatal("arp event without a note")
				}
				if !in.mixer.ArpVoiceReady() {
					t.Error("arp note fired but voice not built")
				}
				return
			}
		case <-deadline:
			t.Fatal("no arp note within deadline")
		}
	}
}

func TestArpDoesNotRunWhileStopped(t *testing.T) {
	in := seeded(t, 3, 0, 0)
	enabled := true
	in.SetArp(intarp.Change{Enabled: &enabled})
	if in.seq.Running() {
		t.Error("sequencer running while instrument stopped")
	}
}

func TestSpeedAndReverseForwarding(t *testing.T) {
	in := seeded(t, 3, 0, 0)
	in.SetSpeed(4)
	if got := in.Speed(); got != 4 {
		t.Errorf("speed = %f", got)
	}
	in.SetSpeed(100)
	if got := in.Speed(); got != 10 {
		t.Errorf("speed clamp = %f", got)
	}
	in.SetReverse(true)
	if !in.Reversed() {
		t.Error("reverse flag not set")
	}
}
