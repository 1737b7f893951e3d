package resilience

import (
	"context"

	"github.com/voxbridge/voxbridge/pkg/provider/stt"
)

// STTChain implements [stt.Transcriber] with automatic failover across
// multiple speech-to-text backends.
type STTChain struct {
	chain *Chain[stt.Transcriber]
}

var _ stt.Transcriber = (*STTChain)(nil)

// NewSTTChain creates an [STTChain] with primary as the preferred backend.
func NewSTTChain(primary stt.Transcriber, primaryName string, cfg BreakerConfig) *STTChain {
	return &STTChain{chain: NewChain(primary, primaryName, cfg)}
}

// Add registers an additional transcriber as a fallback.
func (c *STTChain) Add(name string, t stt.Transcriber) {
	c.chain.Add(name, t)
}

// Transcribe forwards to the first healthy backend.
func (c *STTChain) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	return Run(c.chain, func(t stt.Transcriber) (string, error) {
		return t.Transcribe(ctx, pcm)
	})
}
