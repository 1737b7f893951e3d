// Package coqui provides a Coqui TTS-server-backed Synthesizer.
//
// Two API modes are supported:
//
//   - APIModeStandard (default): targets the standard Coqui TTS server
//     (ghcr.io/coqui-ai/tts-cpu). Synthesis is performed via GET /api/tts
//     with URL query parameters.
//
//   - APIModeXTTS: targets the Coqui XTTS v2 API server. Synthesis is
//     performed via POST /tts_to_audio/ with a JSON body.
//
// Both servers operate in batch mode (one HTTP call per reply), which
// matches the pipeline's one-call-per-reply shape.
//
// Typical usage (standard server):
//
//	s := coqui.New("http://localhost:5002",
//	    coqui.WithLanguage("en"),
//	    coqui.WithTimeout(15*time.Second),
//	)
//	wav, err := s.Synthesize(ctx, "Hello there.")
package coqui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voxbridge/voxbridge/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Synthesizer)(nil)

const (
	defaultLanguage = "en"
	defaultTimeout  = 30 * time.Second

	apiTTSEndpoint = "/api/tts"
	xttsEndpoint   = "/tts_to_audio/"
)

// APIMode selects which Coqui server flavour to target.
type APIMode int

const (
	// APIModeStandard targets the standard Coqui TTS server (/api/tts).
	APIModeStandard APIMode = iota

	// APIModeXTTS targets the Coqui XTTS v2 API server (/tts_to_audio/).
	APIModeXTTS
)

// Option is a functional option for configuring a Synthesizer.
type Option func(*Synthesizer)

// WithAPIMode selects the server API flavour. Default: APIModeStandard.
func WithAPIMode(mode APIMode) Option {
	return func(s *Synthesizer) { s.apiMode = mode }
}

// WithLanguage sets the language identifier sent to the server. Default "en".
func WithLanguage(lang string) Option {
	return func(s *Synthesizer) { s.language = lang }
}

// WithSpeaker sets the speaker/voice identifier sent to the server.
func WithSpeaker(id string) Option {
	return func(s *Synthesizer) { s.speakerID = id }
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) { s.httpClient.Timeout = d }
}

// WithHTTPClient replaces the HTTP client. Primarily used in tests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Synthesizer) { s.httpClient = c }
}

// Synthesizer implements tts.Synthesizer against a Coqui TTS server.
// Safe for concurrent use.
type Synthesizer struct {
	serverURL  string
	apiMode    APIMode
	language   string
	speakerID  string
	httpClient *http.Client
}

// New creates a Synthesizer that talks to the Coqui server at serverURL.
func New(serverURL string, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Synthesize implements tts.Synthesizer. The server's WAV response is
// returned as-is.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.apiMode == APIModeXTTS {
		return s.synthesizeXTTS(ctx, text)
	}
	return s.synthesizeStandard(ctx, text)
}

// synthesizeStandard performs a single GET /api/tts request (standard server
// mode) and returns the WAV bytes.
func (s *Synthesizer) synthesizeStandard(ctx context.Context, text string) ([]byte, error) {
	params := url.Values{}
	params.Set("text", text)
	if s.speakerID != "" {
		params.Set("speaker_id", s.speakerID)
	}
	if s.language != "" {
		params.Set("language_id", s.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.serverURL+apiTTSEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("coqui: create tts request: %w", err)
	}
	req.Header.Set("Accept", "audio/wav")

	return s.do(req, apiTTSEndpoint)
}

// synthesizeXTTS performs a single POST /tts_to_audio/ call (XTTS v2 mode)
// and returns the WAV bytes.
func (s *Synthesizer) synthesizeXTTS(ctx context.Context, text string) ([]byte, error) {
	payload := map[string]string{
		"text":     text,
		"language": s.language,
	}
	if s.speakerID != "" {
		payload["speaker_id"] = s.speakerID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("coqui: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.serverURL+xttsEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("coqui: create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	return s.do(req, xttsEndpoint)
}

func (s *Synthesizer) do(req *http.Request, endpoint string) ([]byte, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coqui: %s %s: %w", req.Method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coqui: %s %s returned status %d", req.Method, endpoint, resp.StatusCode)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coqui: read WAV response: %w", err)
	}
	return wav, nil
}
