// Command voxbridge is the voice chat relay server. It accepts browser
// clients over websocket, segments their microphone audio into utterances,
// and runs each utterance through speech recognition, a language model, and
// speech synthesis.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/voxbridge/voxbridge/internal/config"
	"github.com/voxbridge/voxbridge/internal/health"
	transcriptpg "github.com/voxbridge/voxbridge/internal/history/postgres"
	"github.com/voxbridge/voxbridge/internal/observe"
	"github.com/voxbridge/voxbridge/internal/orchestrator"
	"github.com/voxbridge/voxbridge/internal/resilience"
	"github.com/voxbridge/voxbridge/internal/server"
	"github.com/voxbridge/voxbridge/internal/session"
	"github.com/voxbridge/voxbridge/pkg/provider/llm/anyllm"
	"github.com/voxbridge/voxbridge/pkg/provider/stt"
	sttopenai "github.com/voxbridge/voxbridge/pkg/provider/stt/openai"
	"github.com/voxbridge/voxbridge/pkg/provider/stt/whisper"
	"github.com/voxbridge/voxbridge/pkg/provider/tts"
	"github.com/voxbridge/voxbridge/pkg/provider/tts/coqui"
	ttsopenai "github.com/voxbridge/voxbridge/pkg/provider/tts/openai"
	"github.com/voxbridge/voxbridge/pkg/provider/vad"
	"github.com/voxbridge/voxbridge/pkg/provider/vad/energy"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxbridge: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxbridge: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel, cfg.Server.Debug)
	slog.SetDefault(logger)

	slog.Info("voxbridge starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr(),
		"log_level", cfg.Server.LogLevel,
		"sample_rate", cfg.Audio.SampleRate,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "voxbridge",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Collaborators ─────────────────────────────────────────────────────────
	transcriber, err := buildTranscriber(cfg)
	if err != nil {
		slog.Error("failed to build stt provider", "err", err)
		return 1
	}
	responder, err := buildResponder(cfg)
	if err != nil {
		slog.Error("failed to build llm provider", "err", err)
		return 1
	}
	synthesizer, err := buildSynthesizer(cfg)
	if err != nil {
		slog.Error("failed to build tts provider", "err", err)
		return 1
	}

	// ── Transcript log (optional) ─────────────────────────────────────────────
	var (
		orchOpts []orchestrator.Option
		checks   []health.Check
	)
	if dsn := cfg.History.PostgresDSN; dsn != "" {
		transcripts, err := transcriptpg.NewTranscriptLog(ctx, dsn)
		if err != nil {
			slog.Error("failed to open transcript log", "err", err)
			return 1
		}
		defer transcripts.Close()
		orchOpts = append(orchOpts, orchestrator.WithTranscriptLog(transcripts))
		checks = append(checks, health.Check{Name: "transcript_log", Probe: transcripts.Ping})
		slog.Info("transcript log enabled")
	}
	orchOpts = append(orchOpts, orchestrator.WithStageTimeout(cfg.Pipeline.StageTimeout))

	// ── Server ────────────────────────────────────────────────────────────────
	registry := session.NewRegistry()
	orch := orchestrator.New(registry, transcriber, responder, synthesizer, orchOpts...)

	vadCfg := vad.Config{
		SampleRate:      cfg.Audio.SampleRate,
		FrameDurationMs: cfg.Audio.FrameDurationMs,
	}
	srv := server.New(server.Config{
		Addr:          cfg.Server.ListenAddr(),
		StaticDir:     cfg.Server.StaticDir,
		Format:        vadCfg.Format(),
		SilenceFrames: cfg.Audio.SilenceFrames,
		MaxTurns:      cfg.History.MaxTurns,
	}, registry, orch,
		func() vad.Classifier { return energy.New(vadCfg) },
		server.WithHealthChecks(checks...),
	)

	if err := srv.Start(); err != nil {
		slog.Error("failed to start server", "err", err)
		return 1
	}
	slog.Info("server ready — press Ctrl+C to shut down")

	<-ctx.Done()
	slog.Info("shutdown signal received, stopping…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Collaborator wiring ───────────────────────────────────────────────────────

// buildTranscriber constructs the configured STT backend behind a circuit
// breaker chain.
func buildTranscriber(cfg *config.Config) (stt.Transcriber, error) {
	entry := cfg.Providers.STT
	var (
		primary stt.Transcriber
		err     error
	)
	switch entry.Name {
	case "whisper":
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		opts = append(opts, whisper.WithSampleRate(cfg.Audio.SampleRate))
		primary = whisper.New(entry.BaseURL, opts...)
	case "openai":
		opts := []sttopenai.Option{sttopenai.WithSampleRate(cfg.Audio.SampleRate)}
		if entry.BaseURL != "" {
			opts = append(opts, sttopenai.WithBaseURL(entry.BaseURL))
		}
		primary, err = sttopenai.New(entry.APIKey, entry.Model, opts...)
	default:
		return nil, fmt.Errorf("unknown stt provider %q", entry.Name)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("provider created", "kind", "stt", "name", entry.Name)
	return resilience.NewSTTChain(primary, entry.Name, resilience.BreakerConfig{}), nil
}

// buildResponder constructs the configured LLM backend behind a circuit
// breaker chain.
func buildResponder(cfg *config.Config) (*resilience.LLMChain, error) {
	entry := cfg.Providers.LLM
	var backendOpts []anyllmlib.Option
	if entry.APIKey != "" {
		backendOpts = append(backendOpts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		backendOpts = append(backendOpts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	primary, err := anyllm.New(entry.Name, entry.Model, backendOpts)
	if err != nil {
		return nil, err
	}
	slog.Info("provider created", "kind", "llm", "name", entry.Name, "model", entry.Model)
	return resilience.NewLLMChain(primary, entry.Name, resilience.BreakerConfig{}), nil
}

// buildSynthesizer constructs the configured TTS backend behind a breaker
// chain and the silence fallback, so synthesis failures degrade to a silent
// clip instead of a client-visible error.
func buildSynthesizer(cfg *config.Config) (tts.Synthesizer, error) {
	entry := cfg.Providers.TTS
	var (
		primary tts.Synthesizer
		err     error
	)
	switch entry.Name {
	case "coqui":
		var opts []coqui.Option
		if entry.Voice != "" {
			opts = append(opts, coqui.WithSpeaker(entry.Voice))
		}
		primary = coqui.New(entry.BaseURL, opts...)
	case "openai":
		var opts []ttsopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, ttsopenai.WithBaseURL(entry.BaseURL))
		}
		if entry.Voice != "" {
			opts = append(opts, ttsopenai.WithVoice(entry.Voice))
		}
		primary, err = ttsopenai.New(entry.APIKey, entry.Model, opts...)
	default:
		return nil, fmt.Errorf("unknown tts provider %q", entry.Name)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("provider created", "kind", "tts", "name", entry.Name)

	chain := resilience.NewTTSChain(primary, entry.Name, resilience.BreakerConfig{})
	return resilience.NewSilenceFallback(chain, cfg.Audio.SampleRate), nil
}

// ── Logger ────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel, debug bool) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if debug {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
