// Package mock provides a test double for the vad package interfaces.
//
// Use Classifier to drive the segmenter with a scripted sequence of
// speech/silence decisions:
//
//	cls := &mock.Classifier{Script: []bool{true, true, false}}
//	seg := segment.New(format, cls, silenceFrames)
package mock

import (
	"sync"

	"github.com/voxbridge/voxbridge/pkg/provider/vad"
)

// Compile-time assertion that Classifier satisfies vad.Classifier.
var _ vad.Classifier = (*Classifier)(nil)

// Classifier is a mock implementation of vad.Classifier.
type Classifier struct {
	mu sync.Mutex

	// Script holds the decisions returned by successive IsSpeech calls. When
	// exhausted, IsSpeech returns Default.
	Script []bool

	// Default is returned once Script is exhausted (or when Script is nil).
	Default bool

	// Err, if non-nil, is returned by every IsSpeech call.
	Err error

	// Frames records every frame passed to IsSpeech.
	Frames [][]byte

	// ResetCalls counts calls to Reset.
	ResetCalls int

	next int
}

// IsSpeech records the frame and returns the next scripted decision.
func (c *Classifier) IsSpeech(frame []byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return false, c.Err
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	c.Frames = append(c.Frames, cp)
	if c.next < len(c.Script) {
		v := c.Script[c.next]
		c.next++
		return v, nil
	}
	return c.Default, nil
}

// Reset counts the call and rewinds the script.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ResetCalls++
	c.next = 0
}
