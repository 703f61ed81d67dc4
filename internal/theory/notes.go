package theory

import (
	"math"
	"strconv"
)

var pitchNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName spells a pitch class at an octave, e.g. NoteName(1, 4) == "C#4".
func NoteName(pc, octave int) string {
	pc = ((pc % 12) + 12) % 12
	return pitchNames[pc] + strconv.Itoa(octave)
}

// ParseNote converts a note name like "C#4" or "Bb3" to a MIDI note number.
// Returns false for anything it cannot read.
func ParseNote(name string) (int, bool) {
	if len(name) < 2 {
		return 0, false
	}
	pc := -1
	switch name[0] {
	case 'C', 'c':
		pc = 0
	case 'D', 'd':
		pc = 2
	case 'E', 'e':
		pc = 4
	case 'F', 'f':
		pc = 5
	case 'G', 'g':
		pc = 7
	case 'A', 'a':
		pc = 9
	case 'B', 'b':
		pc = 11
	default:
		return 0, false
	}
	rest := name[1:]
	for len(rest) > 0 {
		if rest[0] == '#' {
			pc++
			rest = rest[1:]
		} else if rest[0] == 'b' {
			pc--
			rest = rest[1:]
		} else {
			break
		}
	}
	oct, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	midi := (oct+1)*12 + pc
	if midi < 0 || midi > 127 {
		return 0, false
	}
	return midi, true
}

// MidiToFreq converts a MIDI note number to frequency in Hz (A4 = 440).
func MidiToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

// NoteToFreq parses a note name and returns its frequency, optionally
// detuned by cents. Returns 0 for unparseable names.
func NoteToFreq(name string, detuneCents float64) float64 {
	midi, ok := ParseNote(name)
	if !ok {
		return 0
	}
	return MidiToFreq(midi) * math.Pow(2, detuneCents/1200)
}
