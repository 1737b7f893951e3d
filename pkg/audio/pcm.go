package audio

import (
	"encoding/binary"
	"math"
)

// RMS computes the root-mean-square energy of little-endian PCM16 bytes in
// 16-bit sample units (0..32767). A trailing odd byte is ignored.
func RMS(pcm []byte) float64 {
	n := len(pcm) / BytesPerSample
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*BytesPerSample:]))
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(n))
}
