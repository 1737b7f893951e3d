package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// wavHeader is the canonical 44-byte RIFF/WAVE header for PCM audio.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample/8
	BlockAlign    uint16 // NumChannels * BitsPerSample/8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// EncodeWAV wraps raw little-endian mono PCM16 bytes in a WAV container.
// An empty pcm slice produces a valid zero-length WAV file.
func EncodeWAV(pcm []byte, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio: sample rate must be positive, got %d", sampleRate)
	}
	if len(pcm)%BytesPerSample != 0 {
		return nil, fmt.Errorf("audio: PCM byte length %d is not sample aligned", len(pcm))
	}

	const bitsPerSample = 16
	dataSize := uint32(len(pcm))

	h := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * 1 * bitsPerSample / 8,
		BlockAlign:    1 * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	if err := binary.Write(buf, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("audio: write WAV header: %w", err)
	}
	buf.Write(pcm)
	return buf.Bytes(), nil
}

// SilenceWAV returns a playable WAV file containing only silence. The
// synthesis fallback emits this instead of propagating an error, so the
// client always receives audio it can play.
func SilenceWAV(d time.Duration, sampleRate int) ([]byte, error) {
	if d < 0 {
		d = 0
	}
	samples := int(d.Milliseconds()) * sampleRate / 1000
	return EncodeWAV(make([]byte, samples*BytesPerSample), sampleRate)
}
