// Package mock provides a test double for the llm package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/voxbridge/voxbridge/pkg/provider/llm"
)

// RespondCall records a single invocation of Responder.Respond.
type RespondCall struct {
	// Ctx is the context passed to Respond.
	Ctx context.Context
	// Text is the user text passed to Respond.
	Text string
	// History is a copy of the history passed to Respond.
	History []llm.Turn
}

// Responder is a mock implementation of llm.Responder.
type Responder struct {
	mu sync.Mutex

	// Reply is returned by every Respond call.
	Reply string

	// Err, if non-nil, is returned as the error from Respond.
	Err error

	// RespondCalls records every call to Respond.
	RespondCalls []RespondCall
}

// Compile-time assertion that Responder satisfies llm.Responder.
var _ llm.Responder = (*Responder)(nil)

// Respond records the call and returns Reply, Err.
func (r *Responder) Respond(ctx context.Context, text string, history []llm.Turn) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]llm.Turn, len(history))
	copy(cp, history)
	r.RespondCalls = append(r.RespondCalls, RespondCall{Ctx: ctx, Text: text, History: cp})
	if r.Err != nil {
		return "", r.Err
	}
	return r.Reply, nil
}

// Calls returns a snapshot of recorded calls. Thread-safe.
func (r *Responder) Calls() []RespondCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RespondCall, len(r.RespondCalls))
	copy(out, r.RespondCalls)
	return out
}
