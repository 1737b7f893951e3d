package protocol

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"type":"audio_chunk","data":"AAAA"}`)
	env, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if env.Type != TypeAudioChunk {
		t.Errorf("Type = %q, want %q", env.Type, TypeAudioChunk)
	}
	pcm, err := env.Audio()
	if err != nil {
		t.Fatalf("Audio() error = %v", err)
	}
	if len(pcm) != 3 {
		t.Errorf("decoded payload length = %d, want 3", len(pcm))
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	t.Parallel()
	for name, raw := range map[string]string{
		"invalid JSON": `{"type":`,
		"missing type": `{"data":"AAAA"}`,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := Decode([]byte(raw)); err == nil {
				t.Error("Decode() did not fail")
			}
		})
	}
}

func TestAudioRejectsInvalidBase64(t *testing.T) {
	t.Parallel()
	env := Envelope{Type: TypeAudioChunk, Data: "not base64!!"}
	if _, err := env.Audio(); err == nil {
		t.Error("Audio() did not fail on invalid base64")
	}
}

func TestAudioEmptyData(t *testing.T) {
	t.Parallel()
	env := Envelope{Type: TypeAudioEnd}
	pcm, err := env.Audio()
	if err != nil {
		t.Fatalf("Audio() error = %v", err)
	}
	if pcm != nil {
		t.Errorf("Audio() = %v, want nil", pcm)
	}
}

func TestOutboundConstructors(t *testing.T) {
	t.Parallel()
	wav := []byte{'R', 'I', 'F', 'F'}
	tests := []struct {
		name string
		env  Envelope
		want Type
	}{
		{"welcome", ConnectionEstablished("abc"), TypeConnectionEstablished},
		{"listening", SpeechDetected(), TypeSpeechDetected},
		{"transcription", Transcription("hello"), TypeTranscription},
		{"reply", AIResponse("hi there"), TypeAIResponse},
		{"audio", AudioResponse(wav), TypeAudioResponse},
		{"cleared", HistoryCleared(), TypeHistoryCleared},
		{"error", Error("boom"), TypeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.env.Type != tt.want {
				t.Errorf("Type = %q, want %q", tt.env.Type, tt.want)
			}
			if _, err := tt.env.Encode(); err != nil {
				t.Errorf("Encode() error = %v", err)
			}
		})
	}
}

func TestAudioResponseRoundTrip(t *testing.T) {
	t.Parallel()
	wav := []byte{1, 2, 3, 4, 5}
	env := AudioResponse(wav)
	if env.Data != base64.StdEncoding.EncodeToString(wav) {
		t.Errorf("Data = %q, not base64 of payload", env.Data)
	}
	got, err := env.Audio()
	if err != nil {
		t.Fatalf("Audio() error = %v", err)
	}
	if string(got) != string(wav) {
		t.Errorf("Audio() = %v, want %v", got, wav)
	}
}

func TestConnectionEstablishedMessage(t *testing.T) {
	t.Parallel()
	env := ConnectionEstablished("session-1")
	if env.SessionID != "session-1" {
		t.Errorf("SessionID = %q, want %q", env.SessionID, "session-1")
	}
	if !strings.Contains(env.Message, "established") {
		t.Errorf("Message = %q, want a welcome line", env.Message)
	}
}
