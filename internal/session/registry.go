package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxbridge/voxbridge/internal/history"
	"github.com/voxbridge/voxbridge/internal/protocol"
)

// ErrNotFound is returned by [Registry.Lookup] and [Registry.Send] for
// unknown or already-disconnected session IDs.
var ErrNotFound = errors.New("session not found")

// Registry tracks all live sessions. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register adds sess to the registry.
func (r *Registry) Register(sess *Session) {
	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()
	slog.Info("session registered", "session_id", sess.ID)
}

// Unregister removes the session with the given ID. Removing an unknown ID
// is a no-op, so disconnect paths may race without harm.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		slog.Info("session unregistered", "session_id", id)
	}
}

// Lookup returns the session with the given ID.
func (r *Registry) Lookup(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	return sess, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// SetRecording updates the recording flag of the session with the given ID.
// Unknown IDs are ignored.
func (r *Registry) SetRecording(id string, recording bool) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		sess.SetRecording(recording)
	}
}

// TouchActivity bumps the last-activity timestamp of the session with the
// given ID. Unknown IDs are ignored.
func (r *Registry) TouchActivity(id string) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		sess.Touch()
	}
}

// Send delivers env to one session. A delivery failure unregisters the
// session before the error is returned, so a dead connection never stays
// visible to later sends.
func (r *Registry) Send(ctx context.Context, id string, env protocol.Envelope) error {
	sess, err := r.Lookup(id)
	if err != nil {
		return err
	}
	if err := sess.transport.Send(ctx, env); err != nil {
		r.Unregister(id)
		return fmt.Errorf("send to session %q: %w", id, err)
	}
	return nil
}

// Broadcast delivers env to every live session concurrently. Sessions whose
// delivery fails are unregistered; the joined failures are returned after
// every delivery has settled.
func (r *Registry) Broadcast(ctx context.Context, env protocol.Envelope) error {
	r.mu.RLock()
	targets := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		targets = append(targets, sess)
	}
	r.mu.RUnlock()

	var (
		mu    sync.Mutex
		fails []error
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, sess := range targets {
		g.Go(func() error {
			if err := sess.transport.Send(ctx, env); err != nil {
				r.Unregister(sess.ID)
				mu.Lock()
				fails = append(fails, fmt.Errorf("session %q: %w", sess.ID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(fails...)
}

// Info is a point-in-time snapshot of one session for the /connections
// endpoint.
type Info struct {
	ID           string                `json:"id"`
	ConnectedAt  time.Time             `json:"connected_at"`
	LastActivity time.Time             `json:"last_activity"`
	Recording    bool                  `json:"recording"`
	HistoryTurns int                   `json:"history_turns"`
	RecentTurns  []history.TurnPreview `json:"recent_turns,omitempty"`
}

// summaryTurns bounds the per-session history preview in [Registry.Summary].
const summaryTurns = 4

// Summary returns a snapshot of every live session.
func (r *Registry) Summary() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, Info{
			ID:           sess.ID,
			ConnectedAt:  sess.ConnectedAt,
			LastActivity: sess.LastActivity(),
			Recording:    sess.Recording(),
			HistoryTurns: sess.History.Len(),
			RecentTurns:  sess.History.Summary(summaryTurns),
		})
	}
	return out
}
