// Package protocol defines the JSON message envelope exchanged with browser
// clients over the websocket.
//
// Every frame is a UTF-8 JSON object with a "type" discriminator and a small
// set of optional payload fields. Audio payloads travel base64-encoded; the
// decoded form is raw little-endian mono PCM16 inbound and a WAV container
// outbound.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Type discriminates message envelopes.
type Type string

// Inbound message types.
const (
	// TypeAudioChunk carries one base64 PCM chunk in chunked mode.
	TypeAudioChunk Type = "audio_chunk"

	// TypeAudioEnd signals the end of a chunked recording.
	TypeAudioEnd Type = "audio_end"

	// TypeCompleteAudio carries an entire recording in one message,
	// skipping chunked buffering and voice activity detection.
	TypeCompleteAudio Type = "complete_audio"

	// TypeClearHistory asks the server to forget the conversation so far.
	TypeClearHistory Type = "clear_history"
)

// Outbound message types.
const (
	TypeConnectionEstablished Type = "connection_established"
	TypeSpeechDetected        Type = "speech_detected"
	TypeTranscription         Type = "transcription"
	TypeAIResponse            Type = "ai_response"
	TypeAudioResponse         Type = "audio_response"
	TypeHistoryCleared        Type = "history_cleared"
	TypeError                 Type = "error"
)

// Envelope is the wire representation of every message in both directions.
// Unused fields are omitted from the encoded JSON.
type Envelope struct {
	Type      Type   `json:"type"`
	Data      string `json:"data,omitempty"`
	Text      string `json:"text,omitempty"`
	Message   string `json:"message,omitempty"`
	Status    string `json:"status,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Decode parses a raw JSON frame into an Envelope. A frame without a type is
// malformed.
func Decode(raw []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return Envelope{}, fmt.Errorf("protocol: decode envelope: %w", err)
	}
	if e.Type == "" {
		return Envelope{}, fmt.Errorf("protocol: envelope has no type")
	}
	return e, nil
}

// Encode serialises the envelope to its JSON wire form.
func (e Envelope) Encode() ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s envelope: %w", e.Type, err)
	}
	return raw, nil
}

// Audio returns the base64-decoded audio payload of the envelope.
func (e Envelope) Audio() ([]byte, error) {
	if e.Data == "" {
		return nil, nil
	}
	pcm, err := base64.StdEncoding.DecodeString(e.Data)
	if err != nil {
		return nil, fmt.Errorf("protocol: decode %s audio payload: %w", e.Type, err)
	}
	return pcm, nil
}

// ConnectionEstablished builds the welcome message sent right after a
// session is registered.
func ConnectionEstablished(sessionID string) Envelope {
	return Envelope{
		Type:      TypeConnectionEstablished,
		SessionID: sessionID,
		Message:   "Connection established. You can start talking.",
	}
}

// SpeechDetected builds the listening indicator sent while speech is active.
func SpeechDetected() Envelope {
	return Envelope{Type: TypeSpeechDetected, Status: "listening"}
}

// Transcription builds the recognised-text notification.
func Transcription(text string) Envelope {
	return Envelope{Type: TypeTranscription, Text: text}
}

// AIResponse builds the assistant-reply text notification.
func AIResponse(text string) Envelope {
	return Envelope{Type: TypeAIResponse, Text: text}
}

// AudioResponse builds the synthesized-reply message. wav must be a complete
// WAV file; it is base64-encoded for the wire.
func AudioResponse(wav []byte) Envelope {
	return Envelope{
		Type: TypeAudioResponse,
		Data: base64.StdEncoding.EncodeToString(wav),
	}
}

// HistoryCleared confirms a clear_history request.
func HistoryCleared() Envelope {
	return Envelope{Type: TypeHistoryCleared}
}

// Error builds a user-visible error message.
func Error(message string) Envelope {
	return Envelope{Type: TypeError, Message: message}
}
