// Package orchestrator drives the voice pipeline for one inbound message at
// a time: buffer or accept audio, transcribe it, generate a reply, and
// synthesize speech, emitting protocol messages to the client along the way.
//
// Two modes share the same pipeline. Chunked mode accumulates audio_chunk
// messages through the session's segmenter and triggers on detected end of
// utterance or an explicit audio_end. Atomic mode takes a complete_audio
// message straight to the pipeline.
//
// Collaborator failures never terminate the connection: the client receives
// an error message and the session keeps serving later utterances.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/voxbridge/voxbridge/internal/observe"
	"github.com/voxbridge/voxbridge/internal/protocol"
	"github.com/voxbridge/voxbridge/internal/session"
	"github.com/voxbridge/voxbridge/pkg/provider/llm"
	"github.com/voxbridge/voxbridge/pkg/provider/stt"
	"github.com/voxbridge/voxbridge/pkg/provider/tts"
)

// DefaultStageTimeout bounds each collaborator call when no timeout is
// configured.
const DefaultStageTimeout = 30 * time.Second

// Client-visible error messages. Wording is stable; clients display these
// verbatim.
const (
	msgNoAudio        = "No audio captured."
	msgNotRecognized  = "Could not understand the audio."
	msgTranscribeFail = "Speech recognition failed. Please try again."
	msgRespondFail    = "Could not generate a response. Please try again."
	msgSynthesisFail  = "Could not synthesize the reply audio."
	msgBadPayload     = "Invalid audio payload."
	msgBusy           = "Still processing the previous utterance."
	msgUnknownType    = "Unsupported message type."
)

// TranscriptLog persists conversation turns durably. The postgres
// implementation satisfies this; a nil log disables persistence.
type TranscriptLog interface {
	Write(ctx context.Context, sessionID string, turn llm.Turn) error
}

// Orchestrator routes inbound client messages and runs the pipeline. Safe
// for concurrent use across sessions; per-session ordering is the caller's
// responsibility (one reader goroutine per connection).
type Orchestrator struct {
	registry     *session.Registry
	transcriber  stt.Transcriber
	responder    llm.Responder
	synthesizer  tts.Synthesizer
	metrics      *observe.Metrics
	transcripts  TranscriptLog
	stageTimeout time.Duration
}

// Option customises an [Orchestrator].
type Option func(*Orchestrator)

// WithMetrics overrides the default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTranscriptLog enables durable transcript persistence.
func WithTranscriptLog(l TranscriptLog) Option {
	return func(o *Orchestrator) { o.transcripts = l }
}

// WithStageTimeout bounds each collaborator call.
func WithStageTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.stageTimeout = d
		}
	}
}

// New creates an Orchestrator over the given collaborators.
func New(registry *session.Registry, transcriber stt.Transcriber, responder llm.Responder, synthesizer tts.Synthesizer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:     registry,
		transcriber:  transcriber,
		responder:    responder,
		synthesizer:  synthesizer,
		stageTimeout: DefaultStageTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o
}

// HandleMessage processes one inbound envelope for sess. Errors it returns
// are connection-level (the client is gone); everything recoverable is
// reported to the client as an error message instead.
func (o *Orchestrator) HandleMessage(ctx context.Context, sess *session.Session, env protocol.Envelope) error {
	o.metrics.RecordMessage(ctx, string(env.Type))
	sess.Touch()

	switch env.Type {
	case protocol.TypeAudioChunk:
		return o.handleChunk(ctx, sess, env)
	case protocol.TypeAudioEnd:
		return o.handleAudioEnd(ctx, sess)
	case protocol.TypeCompleteAudio:
		return o.handleCompleteAudio(ctx, sess, env)
	case protocol.TypeClearHistory:
		sess.History.Clear()
		slog.Info("conversation history cleared", "session_id", sess.ID)
		return o.registry.Send(ctx, sess.ID, protocol.HistoryCleared())
	default:
		slog.Warn("unsupported message type",
			"session_id", sess.ID, "type", env.Type)
		return o.registry.Send(ctx, sess.ID, protocol.Error(msgUnknownType))
	}
}

func (o *Orchestrator) handleChunk(ctx context.Context, sess *session.Session, env protocol.Envelope) error {
	pcm, err := env.Audio()
	if err != nil {
		return o.registry.Send(ctx, sess.ID, protocol.Error(msgBadPayload))
	}
	sess.SetRecording(true)

	wasSpeaking := sess.Segmenter.SawSpeech()
	speaking, err := sess.Segmenter.SubmitChunk(pcm)
	if err != nil {
		slog.Warn("rejecting audio chunk",
			"session_id", sess.ID, "error", err)
		return o.registry.Send(ctx, sess.ID, protocol.Error(msgBadPayload))
	}
	if !wasSpeaking && speaking {
		if err := o.registry.Send(ctx, sess.ID, protocol.SpeechDetected()); err != nil {
			return err
		}
	}

	if sess.Segmenter.EndOfUtterance() {
		if !sess.BeginRun() {
			// A run is still in flight. Keep buffering; the next trigger
			// retries once the slot frees. The busy error is reserved for
			// explicit client requests.
			return nil
		}
		sess.SetRecording(false)
		o.launch(ctx, sess, sess.Segmenter.Drain(), "chunked")
	}
	return nil
}

func (o *Orchestrator) handleAudioEnd(ctx context.Context, sess *session.Session) error {
	sess.SetRecording(false)
	return o.flush(ctx, sess, "chunked")
}

func (o *Orchestrator) handleCompleteAudio(ctx context.Context, sess *session.Session, env protocol.Envelope) error {
	pcm, err := env.Audio()
	if err != nil {
		return o.registry.Send(ctx, sess.ID, protocol.Error(msgBadPayload))
	}
	if !sess.BeginRun() {
		return o.registry.Send(ctx, sess.ID, protocol.Error(msgBusy))
	}
	o.launch(ctx, sess, pcm, "atomic")
	return nil
}

// flush drains the segmenter and runs the pipeline over the utterance. A
// buffer holding no speech frames is discarded without a transcriber call.
// The drain happens on the read loop so chunks arriving mid-flush land in
// the next utterance; the pipeline itself runs on its own goroutine so a
// slow collaborator never stalls frame ingestion.
func (o *Orchestrator) flush(ctx context.Context, sess *session.Session, mode string) error {
	if !sess.Segmenter.SawSpeech() {
		sess.Segmenter.Drain()
		o.metrics.RecordUtterance(ctx, mode, "empty", 0)
		return o.registry.Send(ctx, sess.ID, protocol.Error(msgNoAudio))
	}
	if !sess.BeginRun() {
		return o.registry.Send(ctx, sess.ID, protocol.Error(msgBusy))
	}
	o.launch(ctx, sess, sess.Segmenter.Drain(), mode)
	return nil
}

// launch starts one pipeline run. The caller must have claimed the run slot
// with BeginRun. Delivery failures mean the client is gone; the result is
// abandoned.
func (o *Orchestrator) launch(ctx context.Context, sess *session.Session, pcm []byte, mode string) {
	go func() {
		defer sess.EndRun()
		if err := o.run(ctx, sess, pcm, mode); err != nil {
			slog.Debug("pipeline delivery stopped",
				"session_id", sess.ID, "error", err)
		}
	}()
}

// run executes transcribe → respond → synthesize over one utterance.
func (o *Orchestrator) run(ctx context.Context, sess *session.Session, pcm []byte, mode string) error {
	start := time.Now()
	if len(pcm) == 0 {
		o.metrics.RecordUtterance(ctx, mode, "empty", time.Since(start))
		return o.registry.Send(ctx, sess.ID, protocol.Error(msgNoAudio))
	}

	text, err := o.transcribe(ctx, pcm)
	if err != nil {
		slog.Error("transcription failed",
			"session_id", sess.ID, "error", err)
		o.metrics.RecordUtterance(ctx, mode, "error", time.Since(start))
		return o.registry.Send(ctx, sess.ID, protocol.Error(msgTranscribeFail))
	}
	if text == "" {
		o.metrics.RecordUtterance(ctx, mode, "no_speech", time.Since(start))
		return o.registry.Send(ctx, sess.ID, protocol.Error(msgNotRecognized))
	}
	if err := o.registry.Send(ctx, sess.ID, protocol.Transcription(text)); err != nil {
		return err
	}

	// The user turn is recorded before the responder runs, so a responder
	// failure still leaves what the user said in history and the transcript.
	// The responder itself sees the history as it stood before this turn.
	hist := sess.History.Turns()
	o.remember(ctx, sess, llm.Turn{Role: llm.RoleUser, Text: text})

	reply, err := o.respond(ctx, text, hist)
	if err != nil {
		slog.Error("response generation failed",
			"session_id", sess.ID, "error", err)
		o.metrics.RecordUtterance(ctx, mode, "error", time.Since(start))
		return o.registry.Send(ctx, sess.ID, protocol.Error(msgRespondFail))
	}
	o.remember(ctx, sess, llm.Turn{Role: llm.RoleAssistant, Text: reply})
	if err := o.registry.Send(ctx, sess.ID, protocol.AIResponse(reply)); err != nil {
		return err
	}

	wav, err := o.synthesize(ctx, reply)
	if err != nil {
		// The text reply already went out; the exchange is degraded, not lost.
		slog.Error("speech synthesis failed",
			"session_id", sess.ID, "error", err)
		o.metrics.RecordUtterance(ctx, mode, "degraded", time.Since(start))
		return o.registry.Send(ctx, sess.ID, protocol.Error(msgSynthesisFail))
	}

	o.metrics.RecordUtterance(ctx, mode, "ok", time.Since(start))
	slog.Info("utterance processed",
		"session_id", sess.ID,
		"mode", mode,
		"pcm_bytes", len(pcm),
		"duration", time.Since(start))
	return o.registry.Send(ctx, sess.ID, protocol.AudioResponse(wav))
}

func (o *Orchestrator) transcribe(ctx context.Context, pcm []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()
	start := time.Now()
	text, err := o.transcriber.Transcribe(ctx, pcm)
	o.metrics.RecordStage(ctx, "stt", time.Since(start), err)
	return text, err
}

func (o *Orchestrator) respond(ctx context.Context, text string, hist []llm.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()
	start := time.Now()
	reply, err := o.responder.Respond(ctx, text, hist)
	o.metrics.RecordStage(ctx, "llm", time.Since(start), err)
	return reply, err
}

func (o *Orchestrator) synthesize(ctx context.Context, text string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()
	start := time.Now()
	wav, err := o.synthesizer.Synthesize(ctx, text)
	o.metrics.RecordStage(ctx, "tts", time.Since(start), err)
	return wav, err
}

// remember appends a turn to the in-memory history and, when configured, the
// durable transcript log. Log failures are reported but never fail the run.
func (o *Orchestrator) remember(ctx context.Context, sess *session.Session, turn llm.Turn) {
	sess.History.Append(turn)
	if o.transcripts == nil {
		return
	}
	if err := o.transcripts.Write(ctx, sess.ID, turn); err != nil {
		slog.Warn("transcript write failed",
			"session_id", sess.ID, "error", err)
	}
}
