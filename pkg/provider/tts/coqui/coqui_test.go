package coqui

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

var fakeWAV = []byte("RIFFxxxxWAVEfake-audio-payload")

func TestSynthesizeStandard(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tts" {
			t.Errorf("path = %q, want /api/tts", r.URL.Path)
		}
		if got := r.URL.Query().Get("text"); got != "Hello there." {
			t.Errorf("text param = %q", got)
		}
		if got := r.URL.Query().Get("language_id"); got != "en" {
			t.Errorf("language_id param = %q", got)
		}
		w.Write(fakeWAV)
	}))
	defer srv.Close()

	s := New(srv.URL, WithLanguage("en"))
	wav, err := s.Synthesize(context.Background(), "Hello there.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !bytes.Equal(wav, fakeWAV) {
		t.Error("WAV payload not returned verbatim")
	}
}

func TestSynthesizeXTTS(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tts_to_audio/" {
			t.Errorf("path = %q, want /tts_to_audio/", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var payload map[string]string
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		if payload["text"] != "Guten Tag." || payload["language"] != "de" {
			t.Errorf("payload = %v", payload)
		}
		w.Write(fakeWAV)
	}))
	defer srv.Close()

	s := New(srv.URL, WithAPIMode(APIModeXTTS), WithLanguage("de"))
	wav, err := s.Synthesize(context.Background(), "Guten Tag.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !bytes.Equal(wav, fakeWAV) {
		t.Error("WAV payload not returned verbatim")
	}
}

func TestSynthesizeServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := New(srv.URL)
	if _, err := s.Synthesize(context.Background(), "hi"); err == nil {
		t.Fatal("expected error on HTTP 503")
	}
}
