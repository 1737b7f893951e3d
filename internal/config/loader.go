package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/voxbridge/voxbridge/pkg/audio"
)

// ValidProviderNames lists known provider names per collaborator kind.
// Used by [Validate] to reject unrecognised names.
var ValidProviderNames = map[string][]string{
	"stt": {"whisper", "openai"},
	"llm": {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"tts": {"coqui", "openai"},
}

// Load reads the YAML configuration file at path, applies environment
// overrides, and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment overrides,
// and validates the result. Useful in tests where configs are constructed
// from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	errs := applyEnv(cfg)
	if err := Validate(cfg); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// applyEnv overlays deployment-sensitive environment variables onto cfg.
// An override that fails to parse is returned as an error, never silently
// replaced by the default value.
func applyEnv(cfg *Config) []error {
	var errs []error
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			errs = append(errs, fmt.Errorf("env PORT %q is not an integer", v))
		}
	}
	if v := os.Getenv("DEBUG"); v != "" {
		cfg.Server.Debug = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = LogLevel(strings.ToLower(v))
	}
	if v := os.Getenv("SAMPLE_RATE"); v != "" {
		if rate, err := strconv.Atoi(v); err == nil {
			cfg.Audio.SampleRate = rate
		} else {
			errs = append(errs, fmt.Errorf("env SAMPLE_RATE %q is not an integer", v))
		}
	}
	if v := os.Getenv("FRAME_DURATION"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Audio.FrameDurationMs = ms
		} else {
			errs = append(errs, fmt.Errorf("env FRAME_DURATION %q is not an integer", v))
		}
	}
	if v := os.Getenv("MAX_SILENCE_FRAMES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Audio.SilenceFrames = n
		} else {
			errs = append(errs, fmt.Errorf("env MAX_SILENCE_FRAMES %q is not an integer", v))
		}
	}
	if v := os.Getenv("STT_API_KEY"); v != "" {
		cfg.Providers.STT.APIKey = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.Providers.LLM.APIKey = v
	}
	if v := os.Getenv("TTS_API_KEY"); v != "" {
		cfg.Providers.TTS.APIKey = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.History.PostgresDSN = v
	}
	return errs
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found, so a
// broken deployment surfaces every problem in one startup attempt.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port))
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Audio
	if !audio.ValidRate(cfg.Audio.SampleRate) {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be one of 8000, 16000, 44100, 48000, got %d", cfg.Audio.SampleRate))
	}
	if cfg.Audio.FrameDurationMs <= 0 {
		errs = append(errs, fmt.Errorf("audio.frame_duration_ms must be positive, got %d", cfg.Audio.FrameDurationMs))
	}
	if cfg.Audio.SilenceFrames <= 0 {
		errs = append(errs, fmt.Errorf("audio.silence_frames must be positive, got %d", cfg.Audio.SilenceFrames))
	}

	// Providers
	errs = append(errs, validateProvider("stt", cfg.Providers.STT)...)
	errs = append(errs, validateProvider("llm", cfg.Providers.LLM)...)
	errs = append(errs, validateProvider("tts", cfg.Providers.TTS)...)

	// History
	if cfg.History.MaxTurns <= 0 {
		errs = append(errs, fmt.Errorf("history.max_turns must be positive, got %d", cfg.History.MaxTurns))
	}

	// Pipeline
	if cfg.Pipeline.StageTimeout < 0 {
		errs = append(errs, fmt.Errorf("pipeline.stage_timeout must not be negative, got %s", cfg.Pipeline.StageTimeout))
	}

	return errors.Join(errs...)
}

// validateProvider checks one collaborator entry. Every pipeline stage needs
// a backend, so an empty name is a validation failure.
func validateProvider(kind string, entry ProviderEntry) []error {
	var errs []error
	if entry.Name == "" {
		errs = append(errs, fmt.Errorf("providers.%s.name must be set", kind))
		return errs
	}
	valid := ValidProviderNames[kind]
	found := false
	for _, name := range valid {
		if entry.Name == name {
			found = true
			break
		}
	}
	if !found {
		errs = append(errs, fmt.Errorf("providers.%s.name %q is invalid; valid values: %s",
			kind, entry.Name, strings.Join(valid, ", ")))
	}
	return errs
}

// hostPort joins host and port, bracketing IPv6 literals.
func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
