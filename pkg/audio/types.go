// Package audio provides the PCM types and helpers shared across the
// voxbridge pipeline: fixed-duration frames, sample/byte conversions, and a
// minimal WAV (RIFF) encoder for synthesized replies.
//
// All audio in the system is raw little-endian signed 16-bit mono PCM unless
// it is wrapped in a WAV container for delivery to the client.
package audio

import "fmt"

// BytesPerSample is fixed at 2 for 16-bit PCM.
const BytesPerSample = 2

// ValidSampleRates lists the sample rates the pipeline accepts.
var ValidSampleRates = []int{8000, 16000, 44100, 48000}

// Format describes the fixed frame geometry of a session's audio stream.
type Format struct {
	// SampleRate in Hz. Must be one of [ValidSampleRates].
	SampleRate int

	// FrameDurationMs is the duration of a single frame in milliseconds.
	FrameDurationMs int
}

// FrameBytes returns the exact byte length of one frame: samples per frame
// times two bytes per 16-bit sample.
func (f Format) FrameBytes() int {
	return f.SampleRate * f.FrameDurationMs / 1000 * BytesPerSample
}

// ValidRate reports whether rate is one of the supported sample rates.
func ValidRate(rate int) bool {
	for _, r := range ValidSampleRates {
		if r == rate {
			return true
		}
	}
	return false
}

// Frame is a single fixed-duration slice of mono PCM16 audio, the unit the
// voice activity classifier operates on.
type Frame struct {
	// Data is raw little-endian 16-bit mono PCM. Its length must equal
	// Format.FrameBytes() for the owning stream.
	Data []byte
}

// CheckFrame validates that data has the exact byte length required by f.
// The classifier needs frames of exactly this size, so anything else is an
// input error.
func (f Format) CheckFrame(data []byte) error {
	if len(data) != f.FrameBytes() {
		return fmt.Errorf("audio: frame is %d bytes, want %d (%d Hz, %d ms)",
			len(data), f.FrameBytes(), f.SampleRate, f.FrameDurationMs)
	}
	return nil
}
