// Package vad defines the Classifier interface for voice activity detection
// backends.
//
// A classifier makes a per-frame binary speech/non-speech decision. It is
// synchronous by design: IsSpeech returns immediately, making it suitable for
// the low-latency segmentation loop that gates transcription input.
//
// Classifiers require frames of an exact byte length — the length implied by
// the [Config] sample rate and frame duration. A frame of any other length is
// a caller error and must be rejected, never padded or truncated.
//
// Implementations must be safe for concurrent use unless they document
// otherwise; the segmenter serialises calls per session either way.
package vad

import "github.com/voxbridge/voxbridge/pkg/audio"

// Config holds the parameters for a classifier instance.
type Config struct {
	// SampleRate is the audio sample rate in Hz. Must be one of
	// audio.ValidSampleRates.
	SampleRate int

	// FrameDurationMs is the fixed duration of each frame in milliseconds.
	FrameDurationMs int
}

// Format returns the audio frame geometry implied by the config.
func (c Config) Format() audio.Format {
	return audio.Format{SampleRate: c.SampleRate, FrameDurationMs: c.FrameDurationMs}
}

// Classifier is the abstraction over any frame-level speech detector.
type Classifier interface {
	// IsSpeech classifies a single frame of raw little-endian mono PCM16.
	// The frame must have exactly the byte length implied by the classifier's
	// Config; a mismatched frame returns an error and must not affect any
	// internal detection state.
	IsSpeech(frame []byte) (bool, error)

	// Reset clears accumulated detection state (smoothing history, hysteresis
	// counters) so a new utterance starts clean.
	Reset()
}
