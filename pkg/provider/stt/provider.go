// Package stt defines the Transcriber interface for speech-to-text backends.
//
// A transcriber wraps a batch transcription service (a whisper-server binary,
// the OpenAI audio API, or a test double) behind a single blocking call. The
// pipeline hands it one complete utterance of PCM audio and receives text.
//
// "No speech recognised" is an expected outcome, not a failure: silence,
// background noise, and non-speech audio all legitimately produce no text.
// Implementations signal it by returning ("", nil); errors are reserved for
// service faults (network, authentication, malformed responses).
//
// Implementations must be safe for concurrent use — multiple sessions may
// transcribe simultaneously.
package stt

import "context"

// Transcriber is the abstraction over any speech-to-text backend.
type Transcriber interface {
	// Transcribe converts one utterance of raw little-endian mono PCM16 audio
	// into text. The empty string with a nil error means the audio contained
	// no recognisable speech. The call blocks until the backend responds or
	// ctx is cancelled.
	Transcribe(ctx context.Context, pcm []byte) (string, error)
}
