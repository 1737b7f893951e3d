// Package tts defines the Synthesizer interface for text-to-speech backends.
//
// A synthesizer wraps a batch speech synthesis service (a Coqui TTS server,
// the OpenAI audio API, …) behind a single blocking call: assistant text in,
// a complete playable WAV file out.
//
// Raw implementations may fail like any remote collaborator. The pipeline
// wraps them in resilience.SilenceFallback so that the client always receives
// playable audio — the degradation policy lives there, not in the backends.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Synthesizer is the abstraction over any text-to-speech backend.
type Synthesizer interface {
	// Synthesize converts text into a WAV file (PCM16 mono). The call blocks
	// until the backend responds or ctx is cancelled.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
