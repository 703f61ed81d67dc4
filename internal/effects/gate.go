package effects

import "math"

// gateFloorDB is the default threshold; at -100 dB the gate is effectively
// always open.
const gateFloorDB = -100

// Gate attenuates the signal to silence while its envelope sits below a dB
// threshold. The threshold is live-settable; gain changes are smoothed to
// avoid chatter at the boundary.
type Gate struct {
	thresholdDB param
	attack      float32
	release     float32
	env         float32
	gain        float32
}

// NewGate creates a noise gate.
// thresholdDB: open threshold in dB (e.g. -40); -100 means effectively open
func NewGate(sampleRate int, thresholdDB float32) *Gate {
	sr := float64(sampleRate)
	g := &Gate{
		attack:  float32(1.0 - math.Exp(-1.0/(0.005*sr))),
		release: float32(1.0 - math.Exp(-1.0/(0.05*sr))),
		gain:    1,
	}
	g.thresholdDB.store(clampThreshold(thresholdDB))
	return g
}

// SetThreshold updates the open threshold on the live effect.
func (g *Gate) SetThreshold(db float32) {
	g.thresholdDB.store(clampThreshold(db))
}

func clampThreshold(db float32) float32 {
	return clamp(db, gateFloorDB, 0)
}

func (g *Gate) Process(l, r float32) (float32, float32) {
	mono := float32(math.Max(math.Abs(float64(l)), math.Abs(float64(r))))
	if mono > g.env {
		g.env += g.attack * (mono - g.env)
	} else {
		g.env += g.release * (mono - g.env)
	}
	threshold := float32(math.Pow(10, float64(g.thresholdDB.load())/20))
	var target float32
	if g.env >= threshold {
		target = 1
	}
	g.gain += g.release * (target - g.gain)
	return l * g.gain, r * g.gain
}

func (g *Gate) Reset() {
	g.env = 0
	g.gain = 1
}
