package resilience

import (
	"context"
	"log/slog"
	"time"

	"github.com/voxbridge/voxbridge/pkg/audio"
	"github.com/voxbridge/voxbridge/pkg/provider/tts"
)

// TTSChain implements [tts.Synthesizer] with automatic failover across
// multiple speech synthesis backends.
type TTSChain struct {
	chain *Chain[tts.Synthesizer]
}

var _ tts.Synthesizer = (*TTSChain)(nil)

// NewTTSChain creates a [TTSChain] with primary as the preferred backend.
func NewTTSChain(primary tts.Synthesizer, primaryName string, cfg BreakerConfig) *TTSChain {
	return &TTSChain{chain: NewChain(primary, primaryName, cfg)}
}

// Add registers an additional synthesizer as a fallback.
func (c *TTSChain) Add(name string, s tts.Synthesizer) {
	c.chain.Add(name, s)
}

// Synthesize forwards to the first healthy backend.
func (c *TTSChain) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return Run(c.chain, func(s tts.Synthesizer) ([]byte, error) {
		return s.Synthesize(ctx, text)
	})
}

// DefaultSilenceDuration is how much silence [SilenceFallback] emits when
// synthesis fails.
const DefaultSilenceDuration = 500 * time.Millisecond

// SilenceFallback wraps a [tts.Synthesizer] and degrades synthesis failures
// to a short silent WAV. The text reply has already been delivered by the
// time synthesis runs, so a silent clip keeps the client's playback path
// working instead of surfacing an error for an otherwise complete exchange.
type SilenceFallback struct {
	inner      tts.Synthesizer
	sampleRate int
	duration   time.Duration
}

var _ tts.Synthesizer = (*SilenceFallback)(nil)

// NewSilenceFallback wraps inner. sampleRate determines the format of the
// generated silence.
func NewSilenceFallback(inner tts.Synthesizer, sampleRate int) *SilenceFallback {
	return &SilenceFallback{
		inner:      inner,
		sampleRate: sampleRate,
		duration:   DefaultSilenceDuration,
	}
}

// Synthesize forwards to the wrapped synthesizer and substitutes silence on
// failure. It only returns an error when even the silence cannot be encoded.
func (f *SilenceFallback) Synthesize(ctx context.Context, text string) ([]byte, error) {
	wav, err := f.inner.Synthesize(ctx, text)
	if err == nil {
		return wav, nil
	}
	slog.Warn("speech synthesis failed, substituting silence", "error", err)
	return audio.SilenceWAV(f.duration, f.sampleRate)
}
