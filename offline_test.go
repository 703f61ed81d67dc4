package toneclock

import (
	"encoding/binary"
	"testing"
	"time"
)

func TestRenderSecondsProducesAudio(t *testing.T) {
	start := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	samples, err := RenderSeconds(testRate, start, 2.0)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if want := testRate * 2 * 2; len(samples) != want {
		t.Fatalf("sample count = %d, want %d", len(samples), want)
	}
	var energy float64
	for _, s := range samples {
		energy += float64(s) * float64(s)
	}
	if energy == 0 {
		t.Error("rendered audio is silent")
	}
	for i, s := range samples {
		if s < -1 || s > 1 {
			t.Fatalf("sample %d out of range: %f", i, s)
		}
	}
}

func TestRenderSecondsRejectsBadRate(t *testing.T) {
	if _, err := RenderSeconds(0, time.Now(), 1); err == nil {
		t.Error("zero sample rate accepted")
	}
}

func TestEncodeWAVFloat32LEHeader(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1}
	wav := EncodeWAVFloat32LE(samples, testRate, 2)
	if len(wav) != 44+len(samples)*4 {
		t.Fatalf("wav length = %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Fatal("missing RIFF/WAVE/data markers")
	}
	if got := binary.LittleEndian.Uint16(wav[20:]); got != 3 {
		t.Errorf("audio format = %d, want 3 (IEEE float)", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:]); got != 2 {
		t.Errorf("channels = %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[24:]); got != testRate {
		t.Errorf("sample rate = %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:]); got != uint32(len(samples)*4) {
		t.Errorf("data size = %d", got)
	}
}
