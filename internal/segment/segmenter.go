// Package segment turns a stream of fixed-size PCM frames into utterances.
//
// A [Segmenter] buffers every submitted frame and tracks, via a
// [vad.Classifier], how many consecutive silent frames have arrived since
// the last speech. Once the run of silence reaches the configured threshold
// the caller can drain the accumulated buffer as one utterance.
package segment

import (
	"fmt"
	"sync"

	"github.com/voxbridge/voxbridge/pkg/audio"
	"github.com/voxbridge/voxbridge/pkg/provider/vad"
)

// Segmenter accumulates frames for one recording and detects end of
// utterance. It is safe for concurrent use, though a session normally feeds
// it from a single reader goroutine.
type Segmenter struct {
	format        audio.Format
	classifier    vad.Classifier
	silenceFrames int

	mu         sync.Mutex
	buf        []byte
	pending    []byte
	silenceRun int
	sawSpeech  bool
}

// New returns a Segmenter that declares end of utterance after silenceFrames
// consecutive silent frames.
func New(format audio.Format, classifier vad.Classifier, silenceFrames int) *Segmenter {
	return &Segmenter{
		format:        format,
		classifier:    classifier,
		silenceFrames: silenceFrames,
	}
}

// Submit classifies and buffers one frame, then reports whether speech has
// been observed at least once since the last Drain. A frame of the wrong
// length is rejected without touching any segmenter state.
func (s *Segmenter) Submit(frame []byte) (bool, error) {
	if err := s.format.CheckFrame(frame); err != nil {
		return false, fmt.Errorf("segment: %w", err)
	}
	speech, err := s.classifier.IsSpeech(frame)
	if err != nil {
		return false, fmt.Errorf("segment: classify frame: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, frame...)
	if speech {
		s.sawSpeech = true
		s.silenceRun = 0
	} else {
		s.silenceRun++
	}
	return s.sawSpeech, nil
}

// SubmitChunk reframes an arbitrarily sized chunk into exact frames and
// submits each one. Bytes left over after the last full frame are held back
// and prefixed to the next chunk. Like [Segmenter.Submit] it reports whether
// speech has been observed since the last Drain.
func (s *Segmenter) SubmitChunk(chunk []byte) (bool, error) {
	fb := s.format.FrameBytes()

	s.mu.Lock()
	s.pending = append(s.pending, chunk...)
	var frames [][]byte
	for len(s.pending) >= fb {
		frame := make([]byte, fb)
		copy(frame, s.pending)
		s.pending = s.pending[fb:]
		frames = append(frames, frame)
	}
	s.mu.Unlock()

	for _, frame := range frames {
		if _, err := s.Submit(frame); err != nil {
			return s.SawSpeech(), err
		}
	}
	return s.SawSpeech(), nil
}

// SawSpeech reports whether any speech frame has been observed since the
// last Drain.
func (s *Segmenter) SawSpeech() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sawSpeech
}

// EndOfUtterance reports whether speech has been observed and the trailing
// run of silence has reached the threshold. It does not modify state.
func (s *Segmenter) EndOfUtterance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sawSpeech && s.silenceRun >= s.silenceFrames
}

// Drain returns the buffered utterance and resets the segmenter for the next
// recording. The returned slice is owned by the caller; a second Drain
// without intervening Submits returns nil.
func (s *Segmenter) Drain() []byte {
	s.mu.Lock()
	buf := s.buf
	s.buf = nil
	s.pending = nil
	s.silenceRun = 0
	s.sawSpeech = false
	s.mu.Unlock()

	s.classifier.Reset()
	return buf
}

// Buffered returns the number of PCM bytes currently accumulated.
func (s *Segmenter) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}
