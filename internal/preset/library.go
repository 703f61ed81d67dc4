package preset

// Built-in library. Hour presets favor slow sustained pads, minute presets a
// mid-register pluck, second presets a short tick, and arp presets a bright
// lead with glide-friendly envelopes.
var library = []Preset{
	{
		ID: "H01", Name: "Deep Pad", Oscillator: "sine",
		Envelope: Envelope{Attack: 2.5, Decay: 1.0, Sustain: 0.8, Release: 4.0},
		Filter:   Filter{Type: "lowpass", Cutoff: 1200, Q: 1},
		Effects:  Effects{ReverbWet: 0.5, ReverbSize: 0.8, ChorusWet: 0.3},
		VolumeDB: -12,
	},
	{
		ID: "H02", Name: "Dark Drone", Oscillator: "triangle",
		Envelope: Envelope{Attack: 4.0, Decay: 2.0, Sustain: 0.9, Release: 6.0},
		Filter:   Filter{Type: "lowpass", Cutoff: 800, Q: 2},
		Effects:  Effects{ReverbWet: 0.6, ReverbSize: 0.9, TremoloDepth: 0.2, TremoloRateHz: 0.5},
		VolumeDB: -14,
	},
	{
		ID: "M01", Name: "Soft Pluck", Oscillator: "triangle",
		Envelope: Envelope{Attack: 0.01, Decay: 0.4, Sustain: 0.2, Release: 0.8},
		Filter:   Filter{Type: "lowpass", Cutoff: 3000, Q: 1},
		Effects:  Effects{DelayWet: 0.25, DelayTimeMs: 375, DelayFeedback: 0.3, ReverbWet: 0.3, ReverbSize: 0.5},
		VolumeDB: -10,
	},
	{
		ID: "M02", Name: "Warm Keys", Oscillator: "sawtooth",
		Envelope: Envelope{Attack: 0.02, Decay: 0.6, Sustain: 0.4, Release: 1.2},
		Filter:   Filter{Type: "lowpass", Cutoff: 2200, Q: 2},
		Effects:  Effects{ChorusWet: 0.4, ChorusDepthMs: 4, ChorusRateHz: 1.2, ReverbWet: 0.25, ReverbSize: 0.4},
		VolumeDB: -12,
	},
	{
		ID: "S01", Name: "Tick", Oscillator: "sine",
		Envelope: Envelope{Attack: 0.002, Decay: 0.08, Sustain: 0.05, Release: 0.15},
		Filter:   Filter{Type: "highpass", Cutoff: 400, Q: 1},
		Effects:  Effects{DelayWet: 0.15, DelayTimeMs: 200, DelayFeedback: 0.2},
		VolumeDB: -16,
	},
	{
		ID: "S02", Name: "Wood Block", Oscillator: "pulse",
		Envelope: Envelope{Attack: 0.001, Decay: 0.05, Sustain: 0.02, Release: 0.1},
		Filter:   Filter{Type: "bandpass", Cutoff: 1800, Q: 4},
		Effects:  Effects{ReverbWet: 0.2, ReverbSize: 0.3},
		VolumeDB: -18,
	},
	{
		ID: "A01", Name: "Glide Lead", Oscillator: "sawtooth",
		Envelope: Envelope{Attack: 0.01, Decay: 0.2, Sustain: 0.5, Release: 0.3},
		Filter:   Filter{Type: "lowpass", Cutoff: 4000, Q: 3},
		Effects:  Effects{DelayWet: 0.3, DelayTimeMs: 250, DelayFeedback: 0.35, ReverbWet: 0.2, ReverbSize: 0.4},
		VolumeDB: -14,
	},
	{
		ID: "A02", Name: "Acid Line", Oscillator: "square",
		Envelope: Envelope{Attack: 0.005, Decay: 0.15, Sustain: 0.3, Release: 0.2},
		Filter:   Filter{Type: "lowpass", Cutoff: 1500, Q: 8},
		Effects:  Effects{DistortionWet: 0.4, Drive: 6, DelayWet: 0.2, DelayTimeMs: 188, DelayFeedback: 0.3},
		VolumeDB: -16,
	},
}

// Get returns the library preset with the given id, normalized.
func Get(id string) (Preset, bool) {
	for _, p := range library {
		if p.ID == id {
			return p.Normalize(), true
		}
	}
	return Preset{}, false
}

// All returns the normalized library in declaration order.
func All() []Preset {
	out := make([]Preset, len(library))
	for i, p := range library {
		out[i] = p.Normalize()
	}
	return out
}

// Defaults returns the standing presets for the hour, minute, and second
// layers plus the arpeggiator voice.
func Defaults() (hour, minute, second, arpv Preset) {
	hour, _ = Get("H01")
	minute, _ = Get("M01")
	second, _ = Get("S01")
	arpv, _ = Get("A01")
	return
}
