package effects

import "math"

// Distortion implements tanh waveshaping with pre/post gain, an output LPF,
// and a live-settable wet/dry mix.
type Distortion struct {
	preGain  param
	postGain float32
	wet      param
	lpfAlpha float32
	lpfL     float32
	lpfR     float32
}

// NewDistortion creates a distortion effect.
// preGain: input gain (higher = more distortion)
// postGain: output gain
// lpfCutoff: lowpass filter cutoff in Hz (0 = no filter)
// wet: wet/dry mix 0..1
func NewDistortion(sampleRate int, preGain, postGain, lpfCutoff, wet float32) *Distortion {
	d := &Distortion{postGain: postGain}
	d.preGain.store(preGain)
	d.wet.store(clamp(wet, 0, 1))
	if lpfCutoff > 0 && lpfCutoff < float32(sampleRate)/2 {
		rc := 1.0 / (2.0 * math.Pi * float64(lpfCutoff))
		dt := 1.0 / float64(sampleRate)
		d.lpfAlpha = float32(dt / (rc + dt))
	}
	return d
}

// SetWet updates the wet/dry mix on the live effect.
func (d *Distortion) SetWet(wet float32) {
	d.wet.store(clamp(wet, 0, 1))
}

// SetDrive updates the input gain on the live effect.
func (d *Distortion) SetDrive(preGain float32) {
	if preGain < 0 {
		preGain = 0
	}
	d.preGain.store(preGain)
}

func (d *Distortion) Process(l, r float32) (float32, float32) {
	wet := d.wet.load()
	pre := d.preGain.load()
	// Soft clipping via tanh waveshaping
	wl := float32(math.Tanh(float64(l*pre))) * d.postGain
	wr := float32(math.Tanh(float64(r*pre))) * d.postGain
	if d.lpfAlpha > 0 {
		d.lpfL += d.lpfAlpha * (wl - d.lpfL)
		d.lpfR += d.lpfAlpha * (wr - d.lpfR)
		wl = d.lpfL
		wr = d.lpfR
	}
	return l*(1-wet) + wl*wet, r*(1-wet) + wr*wet
}

func (d *Distortion) Reset() {
	d.lpfL = 0
	d.lpfR = 0
}
