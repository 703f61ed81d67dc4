package theory

import (
	"math"
	"testing"
)

func TestTessellationsPartitionChromaticSet(t *testing.T) {
	for n := 1; n <= 12; n++ {
		h, ok := GetHour(n)
		if !ok {
			t.Fatalf("hour %d missing", n)
		}
		var groups [][]int
		if h.Tessellation != nil {
			for _, tri := range h.Tessellation {
				groups = append(groups, tri[:])
			}
		} else {
			if h.Tetrachords == nil {
				t.Fatalf("hour %d has neither tessellation nor tetrachords", n)
			}
			for _, tet := range h.Tetrachords {
				groups = append(groups, tet[:])
			}
		}
		seen := make(map[int]int)
		for _, g := range groups {
			for _, pc := range g {
				seen[pc]++
			}
		}
		if len(seen) != 12 {
			t.Errorf("hour %d: covered %d pitch classes, want 12", n, len(seen))
		}
		for pc := 0; pc < 12; pc++ {
			if seen[pc] != 1 {
				t.Errorf("hour %d: pitch class %d appears %d times", n, pc, seen[pc])
			}
		}
	}
}

func TestOnlyDiminishedHourLacksTessellation(t *testing.T) {
	for n := 1; n <= 12; n++ {
		h, _ := GetHour(n)
		if n == 10 {
			if Tessellate(h) != nil {
				t.Errorf("hour 10 should have nil tessellation")
			}
			if len(h.Tetrachords) != 3 {
				t.Errorf("hour 10 should carry 3 tetrachords, got %d", len(h.Tetrachords))
			}
		} else if Tessellate(h) == nil {
			t.Errorf("hour %d should have a tessellation", n)
		}
	}
}

func TestGetHourRange(t *testing.T) {
	for _, n := range []int{0, 13, -1, 100} {
		if _, ok := GetHour(n); ok {
			t.Errorf("GetHour(%d) should fail", n)
		}
	}
	h, ok := GetHour(11)
	if !ok || h.PrimeForm != [3]int{0, 3, 7} {
		t.Errorf("GetHour(11) = %v, %v", h, ok)
	}
}

func TestGenerateTrichord(t *testing.T) {
	h, _ := GetHour(11)
	cases := []struct {
		transposition int
		want          [3]int
	}{
		{0, [3]int{0, 3, 7}},
		{2, [3]int{2, 5, 9}},
		{10, [3]int{10, 1, 5}},
		{12, [3]int{0, 3, 7}},
		{-3, [3]int{9, 0, 4}},
	}
	for _, c := range cases {
		if got := GenerateTrichord(h, c.transposition); got != c.want {
			t.Errorf("GenerateTrichord(11, %d) = %v, want %v", c.transposition, got, c.want)
		}
	}
}

func TestTranspositionIndexQuarterHours(t *testing.T) {
	for m := 0; m < 60; m++ {
		want := m / 15 % 4
		s := MapTime(1, m, 0)
		if s.Transposition != want {
			t.Errorf("minutes=%d: transposition %d, want %d", m, s.Transposition, want)
		}
	}
}

func TestMapTimeIsPure(t *testing.T) {
	for h := 1; h <= 12; h++ {
		for _, m := range []int{0, 14, 15, 29, 44, 59} {
			for _, sec := range []int{0, 1, 2, 33, 59} {
				a := MapTime(h, m, sec)
				b := MapTime(h, m, sec)
				if a.Hour.Position != b.Hour.Position || a.Transposition != b.Transposition ||
					a.Trichord != b.Trichord || a.NoteIndex != b.NoteIndex {
					t.Fatalf("MapTime(%d,%d,%d) not deterministic: %v vs %v", h, m, sec, a, b)
				}
				if a.NoteIndex != sec%3 {
					t.Fatalf("MapTime(%d,%d,%d): note index %d, want %d", h, m, sec, a.NoteIndex, sec%3)
				}
			}
		}
	}
}

func TestMapTimeDiminishedHourFallsBackToDirectTransposition(t *testing.T) {
	s := MapTime(10, 30, 0) // transposition index 2
	want := [3]int{6, 9, 0} // prime form {0,3,6} + 6 semitones
	if s.Trichord != want {
		t.Errorf("hour 10 trichord = %v, want %v", s.Trichord, want)
	}
}

func TestOctaveShiftAboveTranspositionOne(t *testing.T) {
	low := MapTime(1, 0, 0)   // transposition 0
	high := MapTime(1, 45, 0) // transposition 3
	if got := CurrentNote(low, 4); got != "C4" {
		t.Errorf("transposition 0 note = %q, want C4", got)
	}
	if got := CurrentNote(high, 4); got != "A5" {
		t.Errorf("transposition 3 note = %q, want A5", got)
	}
}

func TestCurrentChordSpelling(t *testing.T) {
	s := MapTime(11, 0, 0)
	want := []string{"C3", "D#3", "G3"}
	got := CurrentChord(s, 3)
	if len(got) != 3 {
		t.Fatalf("chord length %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chord[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseNote(t *testing.T) {
	cases := []struct {
		name string
		midi int
		ok   bool
	}{
		{"C4", 60, true},
		{"C#4", 61, true},
		{"Bb3", 58, true},
		{"A4", 69, true},
		{"G9", 127, true},
		{"H2", 0, false},
		{"", 0, false},
		{"C", 0, false},
	}
	for _, c := range cases {
		midi, ok := ParseNote(c.name)
		if ok != c.ok || (ok && midi != c.midi) {
			t.Errorf("ParseNote(%q) = %d, %v; want %d, %v", c.name, midi, ok, c.midi, c.ok)
		}
	}
}

func TestNoteToFreq(t *testing.T) {
	if f := NoteToFreq("A4", 0); math.Abs(f-440) > 1e-9 {
		t.Errorf("A4 = %f, want 440", f)
	}
	if f := NoteToFreq("A4", 1200); math.Abs(f-880) > 1e-9 {
		t.Errorf("A4 +1200 cents = %f, want 880", f)
	}
	if f := NoteToFreq("xx", 0); f != 0 {
		t.Errorf("bad note should yield 0, got %f", f)
	}
}
