// Package config provides the configuration schema and loader for the
// voxbridge relay server.
//
// Configuration is read from a YAML file, then overridden by environment
// variables for deployment-sensitive values (credentials, host, port).
// Validation collects every violation it finds and reports them all in one
// joined error; an invalid configuration is fatal at startup and nowhere else.
package config

import "time"

// LogLevel controls log verbosity for the voxbridge server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for voxbridge.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Audio     AudioConfig     `yaml:"audio"`
	Providers ProvidersConfig `yaml:"providers"`
	History   HistoryConfig   `yaml:"history"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// Host is the interface the server binds to (e.g., "0.0.0.0").
	Host string `yaml:"host"`

	// Port is the TCP port the server listens on.
	Port int `yaml:"port"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// Debug enables verbose request logging.
	Debug bool `yaml:"debug"`

	// StaticDir, when non-empty, is served at / for the browser client.
	StaticDir string `yaml:"static_dir"`
}

// ListenAddr returns the host:port address to listen on.
func (s ServerConfig) ListenAddr() string {
	host := s.Host
	if host == "" {
		host = "0.0.0.0"
	}
	return hostPort(host, s.Port)
}

// AudioConfig holds the frame geometry and segmentation thresholds shared by
// every session.
type AudioConfig struct {
	// SampleRate in Hz. Must be one of 8000, 16000, 44100, 48000.
	SampleRate int `yaml:"sample_rate"`

	// FrameDurationMs is the duration of one classifier frame in milliseconds.
	FrameDurationMs int `yaml:"frame_duration_ms"`

	// SilenceFrames is the consecutive-silence frame count that ends an
	// utterance (30 frames ≈ 900 ms at 30 ms frames).
	SilenceFrames int `yaml:"silence_frames"`
}

// ProvidersConfig declares which collaborator implementation to use for each
// pipeline stage.
type ProvidersConfig struct {
	STT ProviderEntry `yaml:"stt"`
	LLM ProviderEntry `yaml:"llm"`
	TTS ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all collaborator
// kinds.
type ProviderEntry struct {
	// Name selects the implementation (e.g., "whisper", "openai", "gemini",
	// "coqui").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint (required for local
	// servers such as whisper-server or a Coqui container).
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model"`

	// Voice selects the synthesis voice, where the provider supports one.
	Voice string `yaml:"voice"`
}

// HistoryConfig bounds the per-session conversation history.
type HistoryConfig struct {
	// MaxTurns caps the history length; the oldest turn is evicted first.
	MaxTurns int `yaml:"max_turns"`

	// PostgresDSN, when non-empty, enables the persistent transcript log.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// PipelineConfig holds orchestrator tuning knobs.
type PipelineConfig struct {
	// StageTimeout bounds each external collaborator call
	// (transcribe, respond, synthesize).
	StageTimeout time.Duration `yaml:"stage_timeout"`
}

// Default returns a Config with the built-in defaults. Load starts from this
// and overlays file and environment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			Port:     8000,
			LogLevel: LogInfo,
		},
		Audio: AudioConfig{
			SampleRate:      16000,
			FrameDurationMs: 30,
			SilenceFrames:   30,
		},
		History: HistoryConfig{
			MaxTurns: 10,
		},
		Pipeline: PipelineConfig{
			StageTimeout: 30 * time.Second,
		},
	}
}
