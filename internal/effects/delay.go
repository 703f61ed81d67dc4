package effects

// Delay implements a stereo delay with feedback and cross-channel mixing.
// Wet and feedback are live-settable; the delay time is fixed at
// construction (changing it means rebuilding the buffer, i.e. a swap).
type Delay struct {
	bufL, bufR []float32
	pos        int
	feedback   param
	cross      float32
	wet        param
}

// NewDelay creates a delay effect.
// delayMs: delay time in milliseconds
// feedback: feedback amount 0..1
// cross: cross-channel feedback 0..1
// wet: wet/dry mix 0..1
func NewDelay(sampleRate int, delayMs float64, feedback, cross, wet float32) *Delay {
	samples := int(delayMs * float64(sampleRate) / 1000.0)
	if samples < 1 {
		samples = 1
	}
	d := &Delay{
		bufL:  make([]float32, samples),
		bufR:  make([]float32, samples),
		cross: clamp(cross, 0, 1),
	}
	d.feedback.store(clamp(feedback, 0, 0.95))
	d.wet.store(clamp(wet, 0, 1))
	return d
}

// SetWet updates the wet/dry mix on the live effect.
func (d *Delay) SetWet(wet float32) {
	d.wet.store(clamp(wet, 0, 1))
}

// SetFeedback updates the feedback amount on the live effect.
func (d *Delay) SetFeedback(fb float32) {
	d.feedback.store(clamp(fb, 0, 0.95))
}

func (d *Delay) Process(l, r float32) (float32, float32) {
	fb := d.feedback.load()
	wet := d.wet.load()
	delL := d.bufL[d.pos]
	delR := d.bufR[d.pos]
	fbL := delL*fb*(1-d.cross) + delR*fb*d.cross
	fbR := delR*fb*(1-d.cross) + delL*fb*d.cross
	d.bufL[d.pos] = l + fbL
	d.bufR[d.pos] = r + fbR
	d.pos++
	if d.pos >= len(d.bufL) {
		d.pos = 0
	}
	return l*(1-wet) + delL*wet, r*(1-wet) + delR*wet
}

func (d *Delay) Reset() {
	for i := range d.bufL {
		d.bufL[i] = 0
		d.bufR[i] = 0
	}
	d.pos = 0
}
