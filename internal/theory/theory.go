// Package theory implements the Tone Clock: twelve trichord classes mapped
// onto the positions of a clock face, with tessellation tables that tile all
// twelve pitch classes, and a deterministic mapping from clock time to
// musical material.
package theory

// Hour is one of the twelve Tone Clock trichord classes. The tables below are
// fixed data; nothing mutates an Hour at runtime.
type Hour struct {
	Position  int     // clock position 1-12
	Name      string
	Steps     [2]int  // interval steps composing the trichord
	PrimeForm [3]int  // pitch-class set in prime form
	Symmetric bool    // trichord is its own inversion

	// Tessellation is four trichords that partition all 12 pitch classes.
	// Nil for hour 10 (the diminished trichord cannot tile the chromatic set
	// by itself); use Tetrachords for that hour instead.
	Tessellation [][3]int

	// Tetrachords is the substitute scheme for hour 10: three transpositions
	// of the diminished tetrachord covering the chromatic set.
	Tetrachords [][4]int
}

var hours = [12]Hour{
	{Position: 1, Name: "Chromatic", Steps: [2]int{1, 1}, PrimeForm: [3]int{0, 1, 2}, Symmetric: true,
		Tessellation: [][3]int{{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, {9, 10, 11}}},
	{Position: 2, Name: "Phrygian", Steps: [2]int{1, 2}, PrimeForm: [3]int{0, 1, 3},
		Tessellation: [][3]int{{0, 1, 3}, {2, 4, 5}, {6, 7, 9}, {8, 10, 11}}},
	{Position: 3, Name: "Hexatonic", Steps: [2]int{1, 3}, PrimeForm: [3]int{0, 1, 4},
		Tessellation: [][3]int{{0, 1, 4}, {2, 3, 6}, {5, 8, 9}, {7, 10, 11}}},
	{Position: 4, Name: "Lydian", Steps: [2]int{1, 4}, PrimeForm: [3]int{0, 1, 5},
		Tessellation: [][3]int{{0, 1, 5}, {2, 3, 7}, {4, 8, 9}, {6, 10, 11}}},
	{Position: 5, Name: "Tritonic", Steps: [2]int{1, 5}, PrimeForm: [3]int{0, 1, 6},
		Tessellation: [][3]int{{0, 1, 6}, {2, 7, 8}, {3, 4, 9}, {5, 10, 11}}},
	{Position: 6, Name: "Whole-tone", Steps: [2]int{2, 2}, PrimeForm: [3]int{0, 2, 4}, Symmetric: true,
		Tessellation: [][3]int{{0, 2, 4}, {1, 3, 5}, {6, 8, 10}, {7, 9, 11}}},
	{Position: 7, Name: "Dorian", Steps: [2]int{2, 3}, PrimeForm: [3]int{0, 2, 5},
		Tessellation: [][3]int{{0, 2, 5}, {4, 7, 9}, {6, 8, 11}, {1, 3, 10}}},
	{Position: 8, Name: "Mixolydian", Steps: [2]int{2, 4}, PrimeForm: [3]int{0, 2, 6},
		Tessellation: [][3]int{{0, 2, 6}, {1, 3, 7}, {4, 8, 10}, {5, 9, 11}}},
	{Position: 9, Name: "Pentatonic", Steps: [2]int{2, 5}, PrimeForm: [3]int{0, 2, 7},
		Tessellation: [][3]int{{0, 2, 7}, {1, 6, 8}, {3, 5, 10}, {4, 9, 11}}},
	{Position: 10, Name: "Diminished", Steps: [2]int{3, 3}, PrimeForm: [3]int{0, 3, 6}, Symmetric: true,
		Tetrachords: [][4]int{{0, 3, 6, 9}, {1, 4, 7, 10}, {2, 5, 8, 11}}},
	{Position: 11, Name: "Triadic", Steps: [2]int{3, 4}, PrimeForm: [3]int{0, 3, 7},
		Tessellation: [][3]int{{0, 3, 7}, {2, 6, 9}, {4, 8, 11}, {1, 5, 10}}},
	{Position: 12, Name: "Augmented", Steps: [2]int{4, 4}, PrimeForm: [3]int{0, 4, 8}, Symmetric: true,
		Tessellation: [][3]int{{0, 4, 8}, {1, 5, 9}, {2, 6, 10}, {3, 7, 11}}},
}

// GetHour returns the Hour at clock position n (1-12), or false if n is out
// of range.
func GetHour(n int) (Hour, bool) {
	if n < 1 || n > 12 {
		return Hour{}, false
	}
	return hours[n-1], true
}

// GenerateTrichord transposes the hour's prime form by transposition
// semitones (mod 12).
func GenerateTrichord(h Hour, transposition int) [3]int {
	t := ((transposition % 12) + 12) % 12
	var out [3]int
	for i, pc := range h.PrimeForm {
		out[i] = (pc + t) % 12
	}
	return out
}

// Tessellate returns the hour's four-trichord tessellation, or nil for the
// diminished hour, whose chromatic tiling uses Tetrachords instead.
func Tessellate(h Hour) [][3]int {
	return h.Tessellation
}

// State is the musical material derived from a clock time. It is recomputed
// on demand; virtual time moves continuously so nothing here is cached.
type State struct {
	Hour          Hour
	Trichord      [3]int
	Transposition int // 0-3, quarter-hour granularity
	NoteIndex     int // 0-2, seconds mod 3
}

// MapTime deterministically maps a clock reading to Tone Clock material.
// Transposition index is floor(minutes/15) mod 4. The current trichord is the
// tessellation entry at that index when the hour has one, otherwise the prime
// form transposed by index*3 semitones. Note index is seconds mod 3.
func MapTime(hour, minutes, seconds int) State {
	h, ok := GetHour(hour)
	if !ok {
		h = hours[11]
	}
	ti := (minutes / 15) % 4
	if ti < 0 {
		ti = 0
	}
	var tri [3]int
	if h.Tessellation != nil {
		tri = h.Tessellation[ti]
	} else {
		tri = GenerateTrichord(h, ti*3)
	}
	return State{
		Hour:          h,
		Trichord:      tri,
		Transposition: ti,
		NoteIndex:     seconds % 3,
	}
}

// CurrentNote returns the note at the state's note index, spelled with an
// octave. Transposition indexes above 1 shift up one octave; this register
// variation is part of the instrument's established sound and is preserved
// verbatim.
func CurrentNote(s State, baseOctave int) string {
	return spell(s.Trichord[s.NoteIndex], baseOctave, s.Transposition)
}

// NoteAt is CurrentNote for an arbitrary index into the trichord.
func NoteAt(s State, index, baseOctave int) string {
	if index < 0 || index > 2 {
		index = 0
	}
	return spell(s.Trichord[index], baseOctave, s.Transposition)
}

// CurrentChord spells the whole trichord at the given base octave.
func CurrentChord(s State, baseOctave int) []string {
	out := make([]string, 3)
	for i, pc := range s.Trichord {
		out[i] = spell(pc, baseOctave, s.Transposition)
	}
	return out
}

func spell(pc, baseOctave, transposition int) string {
	oct := baseOctave
	if transposition > 1 {
		oct++
	}
	return NoteName(pc, oct)
}
