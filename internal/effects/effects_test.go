package effects

import (
	"math"
	"testing"
)

func TestDelayProducesOutput(t *testing.T) {
	d := NewDelay(44100, 100, 0.5, 0, 0.5)
	d.Process(1.0, 1.0)
	for i := 0; i < 4409; i++ { // ~100ms at 44100Hz
		d.Process(0, 0)
	}
	l, r := d.Process(0, 0)
	if math.Abs(float64(l)) < 0.01 || math.Abs(float64(r)) < 0.01 {
		t.Errorf("expected delayed output, got l=%f r=%f", l, r)
	}
}

func TestDelaySetWetZeroIsDry(t *testing.T) {
	d := NewDelay(44100, 10, 0.5, 0, 0.8)
	d.SetWet(0)
	for i := 0; i < 2000; i++ {
		l, r := d.Process(0.25, 0.25)
		if l != 0.25 || r != 0.25 {
			t.Fatalf("wet=0 should pass dry signal, got l=%f r=%f", l, r)
		}
	}
}

func TestReverbProducesTail(t *testing.T) {
	r := NewReverb(44100, 0.5, 0.7, 0.5)
	r.Process(1.0, 1.0)
	var maxOut float32
	for i := 0; i < 10000; i++ {
		l, _ := r.Process(0, 0)
		if l > maxOut {
			maxOut = l
		}
	}
	if maxOut < 0.001 {
		t.Error("expected reverb tail")
	}
}

func TestDistortionWetMixAndBounds(t *testing.T) {
	d := NewDistortion(44100, 10, 0.5, 0, 1)
	l, r := d.Process(0.5, 0.5)
	if math.Abs(float64(l)) > 1.0 || math.Abs(float64(r)) > 1.0 {
		t.Error("distortion output should be bounded")
	}
	if math.Abs(float64(l)) < 0.01 {
		t.Error("expected non-zero distortion output")
	}
	d.SetWet(0)
	l, _ = d.Process(0.5, 0.5)
	if l != 0.5 {
		t.Errorf("wet=0 should be dry, got %f", l)
	}
}

func TestTremoloModulatesAmplitude(t *testing.T) {
	tr := NewTremolo(44100, 8, 1)
	var minOut, maxOut float32 = 1, -1
	for i := 0; i < 44100/4; i++ {
		l, _ := tr.Process(0.5, 0.5)
		if l < minOut {
			minOut = l
		}
		if l > maxOut {
			maxOut = l
		}
	}
	if maxOut-minOut < 0.1 {
		t.Errorf("tremolo barely modulated: min=%f max=%f", minOut, maxOut)
	}
	tr.SetDepth(0)
	l, _ := tr.Process(0.5, 0.5)
	if l != 0.5 {
		t.Errorf("depth=0 should bypass, got %f", l)
	}
}

func TestGateClosesBelowThreshold(t *testing.T) {
	g := NewGate(44100, -20) // ~0.1 linear
	// Quiet signal: gate should close
	var out float32
	for i := 0; i < 44100; i++ {
		out, _ = g.Process(0.01, 0.01)
	}
	if math.Abs(float64(out)) > 0.001 {
		t.Errorf("gate should close on quiet signal, got %f", out)
	}
	// Loud signal: gate reopens
	for i := 0; i < 44100; i++ {
		out, _ = g.Process(0.5, 0.5)
	}
	if math.Abs(float64(out)) < 0.25 {
		t.Errorf("gate should open on loud signal, got %f", out)
	}
}

func TestGateFloorThresholdPasses(t *testing.T) {
	g := NewGate(44100, -100)
	var out float32
	for i := 0; i < 44100; i++ {
		out, _ = g.Process(0.05, 0.05)
	}
	if math.Abs(float64(out)-0.05) > 0.005 {
		t.Errorf("floor threshold should pass signal, got %f", out)
	}
}

func TestChainAppliesEffectsInOrderAndReplace(t *testing.T) {
	c := NewChain(
		NewDistortion(44100, 2, 1, 0, 1),
		Bypass{},
	)
	l, r := c.Process(0.5, 0.5)
	if l == 0 || r == 0 {
		t.Error("chain should produce output")
	}
	c.Replace(1, NewDelay(44100, 10, 0, 0, 0.5))
	if _, ok := c.At(1).(*Delay); !ok {
		t.Error("Replace should install the delay in slot 1")
	}
	c.Replace(5, Bypass{}) // out of range: no-op
	if c.At(5) != nil {
		t.Error("out-of-range At should be nil")
	}
}

func TestCompressorReducesLoud(t *testing.T) {
	c := NewCompressor(44100, -10, 4, 1, 50, 0)
	var out float32
	for i := 0; i < 1000; i++ {
		out, _ = c.Process(1.0, 1.0)
	}
	if out >= 1.0 {
		t.Errorf("compressor should reduce loud signals, got %f", out)
	}
}

func TestEQ5BandGainSettable(t *testing.T) {
	eq := NewEQ5Band(44100)
	eq.SetGain(2, 0.5)
	if g := eq.Gain(2); g != 0.5 {
		t.Errorf("band 2 gain = %f, want 0.5", g)
	}
	if g := eq.Gain(9); g != 1.0 {
		t.Errorf("out-of-range band should report unity, got %f", g)
	}
}
