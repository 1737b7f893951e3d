// Package session models one connected voice client and the registry of all
// live connections.
//
// A [Session] owns the per-client pipeline state: the utterance segmenter,
// the conversation history, and the recording flag that tracks whether a
// chunked upload is in progress. The [Registry] maps session IDs to sessions
// and owns outbound delivery, including disconnect-on-send-failure.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxbridge/voxbridge/internal/history"
	"github.com/voxbridge/voxbridge/internal/protocol"
	"github.com/voxbridge/voxbridge/internal/segment"
)

// Transport delivers one outbound envelope to the client. Implementations
// wrap the websocket connection; tests substitute an in-memory fake.
type Transport interface {
	Send(ctx context.Context, env protocol.Envelope) error
}

// Session is the server-side state of one connected client. Exported fields
// are immutable after construction; mutable state is guarded internally.
type Session struct {
	ID          string
	ConnectedAt time.Time
	Segmenter   *segment.Segmenter
	History     *history.Buffer

	transport Transport

	mu           sync.Mutex
	lastActivity time.Time
	recording    bool
	busy         bool
}

// New creates a session with a fresh random ID.
func New(transport Transport, seg *segment.Segmenter, hist *history.Buffer) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.NewString(),
		ConnectedAt:  now,
		Segmenter:    seg,
		History:      hist,
		transport:    transport,
		lastActivity: now,
	}
}

// Touch records client activity.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// LastActivity returns when the client was last heard from.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// SetRecording marks whether a chunked upload is in progress.
func (s *Session) SetRecording(on bool) {
	s.mu.Lock()
	s.recording = on
	s.mu.Unlock()
}

// Recording reports whether a chunked upload is in progress.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// BeginRun claims the session's single pipeline slot. It returns false when
// a run is already in flight, in which case the caller must drop the
// trigger instead of queueing a second run.
func (s *Session) BeginRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

// EndRun releases the pipeline slot claimed by [Session.BeginRun].
func (s *Session) EndRun() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}
