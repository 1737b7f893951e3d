// Package history keeps the conversational context of a session.
//
// The in-memory [Buffer] is what the language model sees: a bounded FIFO of
// the most recent turns. The optional [postgres.TranscriptLog] records every
// turn durably and is never read back into the prompt.
package history

import (
	"sync"

	"github.com/voxbridge/voxbridge/pkg/provider/llm"
)

// DefaultMaxTurns bounds the buffer when no limit is configured.
const DefaultMaxTurns = 10

// Buffer is a bounded FIFO of conversation turns. When full, appending a
// turn evicts the oldest one. Safe for concurrent use.
type Buffer struct {
	maxTurns int

	mu    sync.Mutex
	turns []llm.Turn
}

// NewBuffer returns a buffer holding at most maxTurns turns. Non-positive
// values fall back to [DefaultMaxTurns].
func NewBuffer(maxTurns int) *Buffer {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Buffer{maxTurns: maxTurns}
}

// Append records one turn, evicting the oldest when the buffer is full.
func (b *Buffer) Append(turn llm.Turn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.turns = append(b.turns, turn)
	if len(b.turns) > b.maxTurns {
		b.turns = b.turns[len(b.turns)-b.maxTurns:]
	}
}

// Turns returns a copy of the buffered turns, oldest first.
func (b *Buffer) Turns() []llm.Turn {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]llm.Turn, len(b.turns))
	copy(out, b.turns)
	return out
}

// Len returns the number of buffered turns.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.turns)
}

// previewLen caps the text of each summarised turn.
const previewLen = 80

// TurnPreview is a truncated view of one turn, for operator endpoints.
type TurnPreview struct {
	Role llm.Role `json:"role"`
	Text string   `json:"text"`
}

// Summary returns up to n of the most recent turns, oldest first, each
// truncated to a short preview. Intended for the /connections endpoint, not
// for prompt building.
func (b *Buffer) Summary(n int) []TurnPreview {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || n > len(b.turns) {
		n = len(b.turns)
	}
	out := make([]TurnPreview, 0, n)
	for _, turn := range b.turns[len(b.turns)-n:] {
		text := turn.Text
		if len(text) > previewLen {
			text = text[:previewLen] + "…"
		}
		out = append(out, TurnPreview{Role: turn.Role, Text: text})
	}
	return out
}

// Clear drops all buffered turns.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.turns = nil
}
