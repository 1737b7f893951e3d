// Package llm defines the Responder interface for language-model backends.
//
// A responder wraps a remote or local model API (OpenAI, Anthropic, Gemini, a
// local Ollama instance, …) behind a single blocking call: transcribed user
// text plus the bounded recent conversation history in, assistant reply out.
//
// Implementations must be safe for concurrent use — multiple sessions may
// request responses simultaneously.
package llm

import "context"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a session's conversation history.
type Turn struct {
	// Role is who produced the text.
	Role Role

	// Text is the turn's content.
	Text string
}

// Responder is the abstraction over any conversational LLM backend.
type Responder interface {
	// Respond generates an assistant reply to text. history is the bounded
	// recent conversation, oldest first, and provides context only — the
	// implementation must not mutate it. The call blocks until the backend
	// responds or ctx is cancelled.
	Respond(ctx context.Context, text string, history []Turn) (string, error)
}
