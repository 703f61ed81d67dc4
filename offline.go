package toneclock

import (
	"encoding/binary"
	"math"
	"time"
)

// renderChunkFrames is the block size used when rendering offline.
const renderChunkFrames = 1024

// RenderSeconds renders the instrument's output for a span of virtual time
// starting at start, without opening an audio device. The clock is advanced
// in lockstep with the rendered audio, so boundary events land at the same
// sample positions they would during live playback.
func RenderSeconds(sampleRate int, start time.Time, seconds float64, opts ...Option) ([]float32, error) {
	in, err := New(sampleRate, opts...)
	if err != nil {
		return nil, err
	}
	in.SetVirtual(start)
	in.playSilent()
	defer in.Stop()

	frames := int(float64(sampleRate) * seconds)
	out := make([]float32, frames*2)
	chunkDur := time.Duration(float64(renderChunkFrames) / float64(sampleRate) * float64(time.Second))
	for off := 0; off < frames; off += renderChunkFrames {
		n := renderChunkFrames
		if off+n > frames {
			n = frames - off
		}
		in.mixer.Process(out[off*2 : (off+n)*2])
		in.clock.Advance(chunkDur)
	}
	return out, nil
}

// EncodeWAVFloat32LE wraps interleaved float32 samples in a WAV container
// (format 3, IEEE float, little-endian).
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
