package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/voxbridge/voxbridge/internal/history"
	"github.com/voxbridge/voxbridge/internal/protocol"
	"github.com/voxbridge/voxbridge/internal/segment"
	"github.com/voxbridge/voxbridge/pkg/audio"
	"github.com/voxbridge/voxbridge/pkg/provider/llm"
	vadmock "github.com/voxbridge/voxbridge/pkg/provider/vad/mock"
)

// fakeTransport records sent envelopes and optionally fails every send.
type fakeTransport struct {
	mu   sync.Mutex
	sent []protocol.Envelope
	err  error
}

func (f *fakeTransport) Send(_ context.Context, env protocol.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newSession(tr Transport) *Session {
	format := audio.Format{SampleRate: 16000, FrameDurationMs: 30}
	seg := segment.New(format, &vadmock.Classifier{}, 30)
	return New(tr, seg, history.NewBuffer(10))
}

func TestRegisterLookupUnregister(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	sess := newSession(&fakeTransport{})

	reg.Register(sess)
	got, err := reg.Lookup(sess.ID)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got != sess {
		t.Error("Lookup() returned a different session")
	}

	reg.Unregister(sess.ID)
	if _, err := reg.Lookup(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup() after Unregister error = %v, want ErrNotFound", err)
	}
	// Idempotent.
	reg.Unregister(sess.ID)
}

func TestSendUnregistersOnFailure(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	sess := newSession(&fakeTransport{err: errors.New("connection reset")})
	reg.Register(sess)

	err := reg.Send(context.Background(), sess.ID, protocol.SpeechDetected())
	if err == nil {
		t.Fatal("Send() did not surface the transport failure")
	}
	if _, err := reg.Lookup(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("session still registered after failed send")
	}
}

func TestSendUnknownSession(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	err := reg.Send(context.Background(), "nope", protocol.SpeechDetected())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Send() error = %v, want ErrNotFound", err)
	}
}

func TestBroadcastDeliversToAllHealthy(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	transports := make([]*fakeTransport, 3)
	for i := range transports {
		transports[i] = &fakeTransport{}
		reg.Register(newSession(transports[i]))
	}
	bad := &fakeTransport{err: errors.New("gone")}
	badSess := newSession(bad)
	reg.Register(badSess)

	err := reg.Broadcast(context.Background(), protocol.HistoryCleared())
	if err == nil {
		t.Error("Broadcast() did not report the failed delivery")
	}
	for i, tr := range transports {
		if tr.count() != 1 {
			t.Errorf("transport %d received %d envelopes, want 1", i, tr.count())
		}
	}
	if _, err := reg.Lookup(badSess.ID); !errors.Is(err, ErrNotFound) {
		t.Error("failed session still registered after broadcast")
	}
	if reg.Len() != 3 {
		t.Errorf("Len() = %d, want 3", reg.Len())
	}
}

func TestSetRecordingAndTouchActivity(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	sess := newSession(&fakeTransport{})
	reg.Register(sess)

	before := sess.LastActivity()
	reg.SetRecording(sess.ID, true)
	reg.TouchActivity(sess.ID)
	if !sess.Recording() {
		t.Error("SetRecording(true) did not stick")
	}
	if !sess.LastActivity().After(before) && !sess.LastActivity().Equal(before) {
		t.Error("TouchActivity moved last activity backwards")
	}

	// Unknown IDs are ignored.
	reg.SetRecording("nope", true)
	reg.TouchActivity("nope")
}

func TestBeginRunIsExclusive(t *testing.T) {
	t.Parallel()
	sess := newSession(&fakeTransport{})

	if !sess.BeginRun() {
		t.Fatal("BeginRun() = false on idle session")
	}
	if sess.BeginRun() {
		t.Error("BeginRun() = true while a run is in flight")
	}
	sess.EndRun()
	if !sess.BeginRun() {
		t.Error("BeginRun() = false after EndRun")
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	sess := newSession(&fakeTransport{})
	sess.SetRecording(true)
	sess.History.Append(llm.Turn{Role: llm.RoleUser, Text: "turn on the lights"})
	reg.Register(sess)

	infos := reg.Summary()
	if len(infos) != 1 {
		t.Fatalf("Summary() has %d entries, want 1", len(infos))
	}
	if infos[0].ID != sess.ID || !infos[0].Recording {
		t.Errorf("Summary()[0] = %+v, want recording session %s", infos[0], sess.ID)
	}
	if infos[0].HistoryTurns != 1 || len(infos[0].RecentTurns) != 1 {
		t.Errorf("Summary()[0] history = %d turns, previews %v", infos[0].HistoryTurns, infos[0].RecentTurns)
	}
}
