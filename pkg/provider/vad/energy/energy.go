// Package energy provides a pure-Go RMS energy voice activity classifier.
//
// The classifier compares each frame's root-mean-square energy against two
// thresholds with hysteresis: a higher threshold to enter the speech state
// and a lower one to leave it. Hysteresis prevents the decision from
// flickering at the boundary during quiet speech or noisy silence.
//
// Thresholds are expressed in 16-bit PCM units (0..32767). The defaults suit
// typical browser microphone capture at 16 kHz; tune SpeechThreshold down
// for quiet setups.
package energy

import (
	"sync"

	"github.com/voxbridge/voxbridge/pkg/audio"
	"github.com/voxbridge/voxbridge/pkg/provider/vad"
)

const (
	// defaultSpeechThreshold is the RMS level at which a frame counts as
	// speech. 32767 is full scale; 500 corresponds to clearly audible input.
	defaultSpeechThreshold = 500.0

	// defaultSilenceThreshold is the RMS level below which an active speech
	// state ends. Must be below the speech threshold.
	defaultSilenceThreshold = 250.0
)

// Compile-time assertion that Classifier satisfies vad.Classifier.
var _ vad.Classifier = (*Classifier)(nil)

// Option is a functional option for configuring a Classifier.
type Option func(*Classifier)

// WithThresholds overrides the speech and silence RMS thresholds.
func WithThresholds(speech, silence float64) Option {
	return func(c *Classifier) {
		c.speechThreshold = speech
		c.silenceThreshold = silence
	}
}

// Classifier is an RMS-energy implementation of [vad.Classifier].
// Safe for concurrent use.
type Classifier struct {
	format           audio.Format
	speechThreshold  float64
	silenceThreshold float64

	mu       sync.Mutex
	inSpeech bool
}

// New creates a Classifier for the frame geometry in cfg.
func New(cfg vad.Config, opts ...Option) *Classifier {
	c := &Classifier{
		format:           cfg.Format(),
		speechThreshold:  defaultSpeechThreshold,
		silenceThreshold: defaultSilenceThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// IsSpeech implements vad.Classifier. A frame of the wrong length returns an
// error without touching the hysteresis state.
func (c *Classifier) IsSpeech(frame []byte) (bool, error) {
	if err := c.format.CheckFrame(frame); err != nil {
		return false, err
	}

	level := audio.RMS(frame)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inSpeech {
		if level < c.silenceThreshold {
			c.inSpeech = false
		}
	} else {
		if level >= c.speechThreshold {
			c.inSpeech = true
		}
	}
	return c.inSpeech, nil
}

// Reset implements vad.Classifier.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inSpeech = false
}
