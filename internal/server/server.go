// Package server exposes the relay over HTTP: the /ws websocket endpoint
// that browser clients speak the voice protocol on, plus operational
// endpoints (/healthz, /readyz, /metrics, /connections) and an optional
// static file root for the bundled web client.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxbridge/voxbridge/internal/health"
	"github.com/voxbridge/voxbridge/internal/history"
	"github.com/voxbridge/voxbridge/internal/observe"
	"github.com/voxbridge/voxbridge/internal/orchestrator"
	"github.com/voxbridge/voxbridge/internal/protocol"
	"github.com/voxbridge/voxbridge/internal/segment"
	"github.com/voxbridge/voxbridge/internal/session"
	"github.com/voxbridge/voxbridge/pkg/audio"
	"github.com/voxbridge/voxbridge/pkg/provider/vad"
)

// shutdownDrainTimeout bounds the HTTP server drain during Shutdown.
const shutdownDrainTimeout = 10 * time.Second

// Config holds the server's listen and per-connection settings.
type Config struct {
	// Addr is the host:port to listen on.
	Addr string

	// StaticDir, when non-empty, is served at / for the web client.
	StaticDir string

	// Format is the PCM format every client must send.
	Format audio.Format

	// SilenceFrames is the end-of-utterance threshold handed to each
	// session's segmenter.
	SilenceFrames int

	// MaxTurns bounds each session's conversation history.
	MaxTurns int
}

// Server accepts websocket clients and routes their messages through the
// orchestrator.
type Server struct {
	cfg           Config
	registry      *session.Registry
	orch          *orchestrator.Orchestrator
	newClassifier func() vad.Classifier
	metrics       *observe.Metrics
	health        *health.Handler

	httpSrv  *http.Server
	listener net.Listener
}

// Option customises a [Server].
type Option func(*Server)

// WithMetrics overrides the default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHealthChecks registers readiness probes for /readyz.
func WithHealthChecks(checks ...health.Check) Option {
	return func(s *Server) { s.health = health.New(checks...) }
}

// New creates a Server. newClassifier is called once per connection so each
// session gets its own voice activity detector state.
func New(cfg Config, registry *session.Registry, orch *orchestrator.Orchestrator, newClassifier func() vad.Classifier, opts ...Option) *Server {
	s := &Server{
		cfg:           cfg,
		registry:      registry,
		orch:          orch,
		newClassifier: newClassifier,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.health == nil {
		s.health = health.New()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /connections", s.handleConnections)
	s.health.Register(mux)
	if cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. It returns once the listener is bound; serving
// continues on a background goroutine until [Server.Shutdown].
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", "error", err)
		}
	}()
	slog.Info("server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listen address. Only valid after [Server.Start].
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.cfg.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown drains the HTTP server and disconnects remaining clients.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownDrainTimeout)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}

// handleWS upgrades the connection, registers a session, sends the welcome
// message, and pumps inbound frames through the orchestrator until the
// client disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	seg := segment.New(s.cfg.Format, s.newClassifier(), s.cfg.SilenceFrames)
	sess := session.New(newTransport(conn), seg, history.NewBuffer(s.cfg.MaxTurns))

	s.registry.Register(sess)
	s.metrics.ActiveSessions.Add(ctx, 1)
	defer func() {
		s.registry.Unregister(sess.ID)
		s.metrics.ActiveSessions.Add(context.WithoutCancel(ctx), -1)
	}()

	if err := s.registry.Send(ctx, sess.ID, protocol.ConnectionEstablished(sess.ID)); err != nil {
		slog.Warn("welcome send failed", "session_id", sess.ID, "error", err)
		return
	}

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				slog.Info("client disconnected", "session_id", sess.ID)
			} else if ctx.Err() == nil {
				slog.Warn("websocket read failed", "session_id", sess.ID, "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			if err := s.registry.Send(ctx, sess.ID, protocol.Error("Binary frames are not supported.")); err != nil {
				return
			}
			continue
		}

		env, err := protocol.Decode(data)
		if err != nil {
			slog.Warn("malformed message", "session_id", sess.ID, "error", err)
			if err := s.registry.Send(ctx, sess.ID, protocol.Error("Malformed message.")); err != nil {
				return
			}
			continue
		}

		if err := s.orch.HandleMessage(ctx, sess, env); err != nil {
			slog.Warn("session terminated", "session_id", sess.ID, "error", err)
			return
		}
	}
}

// handleConnections reports a JSON snapshot of all live sessions.
func (s *Server) handleConnections(w http.ResponseWriter, _ *http.Request) {
	summary := struct {
		Count    int            `json:"count"`
		Sessions []session.Info `json:"sessions"`
	}{
		Sessions: s.registry.Summary(),
	}
	summary.Count = len(summary.Sessions)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}
