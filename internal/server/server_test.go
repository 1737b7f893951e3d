package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/voxbridge/voxbridge/internal/observe"
	"github.com/voxbridge/voxbridge/internal/orchestrator"
	"github.com/voxbridge/voxbridge/internal/protocol"
	"github.com/voxbridge/voxbridge/internal/session"
	"github.com/voxbridge/voxbridge/pkg/audio"
	llmmock "github.com/voxbridge/voxbridge/pkg/provider/llm/mock"
	sttmock "github.com/voxbridge/voxbridge/pkg/provider/stt/mock"
	ttsmock "github.com/voxbridge/voxbridge/pkg/provider/tts/mock"
	"github.com/voxbridge/voxbridge/pkg/provider/vad"
	vadmock "github.com/voxbridge/voxbridge/pkg/provider/vad/mock"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var testFormat = audio.Format{SampleRate: 16000, FrameDurationMs: 30}

// startServer boots a full relay on a random port with mock collaborators
// and returns it with its registry.
func startServer(t *testing.T) (*Server, *session.Registry) {
	t.Helper()

	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	registry := session.NewRegistry()
	orch := orchestrator.New(registry,
		&sttmock.Transcriber{Text: "turn on the lights"},
		&llmmock.Responder{Reply: "done, lights are on"},
		&ttsmock.Synthesizer{Audio: []byte("RIFFxxxx")},
		orchestrator.WithMetrics(metrics),
	)

	srv := New(Config{
		Addr:          "127.0.0.1:0",
		Format:        testFormat,
		SilenceFrames: 3,
		MaxTurns:      10,
	}, registry, orch,
		func() vad.Classifier { return &vadmock.Classifier{Default: true} },
		WithMetrics(metrics),
	)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, registry
}

// dial opens a websocket client against srv.
func dial(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws://"+srv.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

// readEnvelope reads one protocol message from conn.
func readEnvelope(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	env, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return env
}

// writeEnvelope sends one protocol message over conn.
func writeEnvelope(t *testing.T, conn *websocket.Conn, env protocol.Envelope) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	raw, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestConnectSendsWelcome(t *testing.T) {
	srv, registry := startServer(t)
	conn := dial(t, srv)

	env := readEnvelope(t, conn)
	if env.Type != protocol.TypeConnectionEstablished {
		t.Fatalf("first message type = %q, want connection_established", env.Type)
	}
	if env.SessionID == "" {
		t.Error("welcome has no session_id")
	}
	if registry.Len() != 1 {
		t.Errorf("registry Len = %d, want 1", registry.Len())
	}
	if _, err := registry.Lookup(env.SessionID); err != nil {
		t.Errorf("welcome session_id not registered: %v", err)
	}
}

func TestCompleteAudioRoundTrip(t *testing.T) {
	srv, _ := startServer(t)
	conn := dial(t, srv)
	_ = readEnvelope(t, conn) // welcome

	pcm := bytes.Repeat([]byte{1}, testFormat.FrameBytes())
	writeEnvelope(t, conn, protocol.Envelope{
		Type: protocol.TypeCompleteAudio,
		Data: base64.StdEncoding.EncodeToString(pcm),
	})

	if env := readEnvelope(t, conn); env.Type != protocol.TypeTranscription || env.Text != "turn on the lights" {
		t.Errorf("message 1 = %+v, want the transcription", env)
	}
	if env := readEnvelope(t, conn); env.Type != protocol.TypeAIResponse || env.Text != "done, lights are on" {
		t.Errorf("message 2 = %+v, want the reply", env)
	}
	env := readEnvelope(t, conn)
	if env.Type != protocol.TypeAudioResponse {
		t.Fatalf("message 3 type = %q, want audio_response", env.Type)
	}
	wav, err := env.Audio()
	if err != nil {
		t.Fatalf("decode reply audio: %v", err)
	}
	if string(wav) != "RIFFxxxx" {
		t.Errorf("reply audio = %q, want the synthesized bytes", wav)
	}
}

func TestMalformedMessageKeepsConnection(t *testing.T) {
	srv, _ := startServer(t)
	conn := dial(t, srv)
	_ = readEnvelope(t, conn) // welcome

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"not json`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if env := readEnvelope(t, conn); env.Type != protocol.TypeError {
		t.Fatalf("message type = %q, want error", env.Type)
	}

	// The connection still works.
	writeEnvelope(t, conn, protocol.Envelope{Type: protocol.TypeClearHistory})
	if env := readEnvelope(t, conn); env.Type != protocol.TypeHistoryCleared {
		t.Errorf("message type = %q, want history_cleared", env.Type)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	srv, _ := startServer(t)
	conn := dial(t, srv)
	_ = readEnvelope(t, conn) // welcome, guarantees the session is registered

	base := "http://" + srv.Addr()

	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(base + "/connections")
	if err != nil {
		t.Fatalf("GET /connections: %v", err)
	}
	defer resp.Body.Close()
	var summary struct {
		Count    int            `json:"count"`
		Sessions []session.Info `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode /connections: %v", err)
	}
	if summary.Count != 1 || len(summary.Sessions) != 1 {
		t.Errorf("/connections = %+v, want one session", summary)
	}

	resp, err = http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/metrics status = %d, want 200", resp.StatusCode)
	}
}

func TestChunkedUtteranceOverWebsocket(t *testing.T) {
	srv, _ := startServer(t)
	conn := dial(t, srv)
	_ = readEnvelope(t, conn) // welcome

	frame := bytes.Repeat([]byte{1}, testFormat.FrameBytes())
	writeEnvelope(t, conn, protocol.Envelope{
		Type: protocol.TypeAudioChunk,
		Data: base64.StdEncoding.EncodeToString(frame),
	})
	if env := readEnvelope(t, conn); env.Type != protocol.TypeSpeechDetected {
		t.Fatalf("message type = %q, want speech_detected", env.Type)
	}

	writeEnvelope(t, conn, protocol.Envelope{Type: protocol.TypeAudioEnd})
	if env := readEnvelope(t, conn); env.Type != protocol.TypeTranscription {
		t.Fatalf("message type = %q, want transcription", env.Type)
	}
}
