package resilience

import (
	"context"

	"github.com/voxbridge/voxbridge/pkg/provider/llm"
)

// LLMChain implements [llm.Responder] with automatic failover across
// multiple language model backends.
type LLMChain struct {
	chain *Chain[llm.Responder]
}

var _ llm.Responder = (*LLMChain)(nil)

// NewLLMChain creates an [LLMChain] with primary as the preferred backend.
func NewLLMChain(primary llm.Responder, primaryName string, cfg BreakerConfig) *LLMChain {
	return &LLMChain{chain: NewChain(primary, primaryName, cfg)}
}

// Add registers an additional responder as a fallback.
func (c *LLMChain) Add(name string, r llm.Responder) {
	c.chain.Add(name, r)
}

// Respond forwards to the first healthy backend.
func (c *LLMChain) Respond(ctx context.Context, text string, history []llm.Turn) (string, error) {
	return Run(c.chain, func(r llm.Responder) (string, error) {
		return r.Respond(ctx, text, history)
	})
}
