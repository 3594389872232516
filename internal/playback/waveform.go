package playback

import (
	"golang.org/x/crypto/blake2b"
)

const (
	DefaultWaveformBars = 40
	minBarHeight        = 0.15
)

// Waveform derives bar heights in (0,1] from the message id alone, so
// the same message always renders the same pattern without stored data.
func Waveform(messageID string, bars int) []float64 {
	if bars <= 0 {
		bars = DefaultWaveformBars
	}

	sum := blake2b.Sum256([]byte(messageID))
	heights := make([]float64, bars)
	for i := range heights {
		b := sum[i%len(sum)]
		// Rotate the digest so runs longer than 32 bars do not repeat
		// verbatim.
		b ^= byte(i / len(sum) * 47)
		heights[i] = minBarHeight + (1-minBarHeight)*float64(b)/255
	}
	return heights
}

// BarActive reports whether the bar at index i is rendered in the
// active color: its proportional horizontal position must be left of
// the current progress percentage.
func BarActive(i, bars int, progress float64) bool {
	if bars <= 0 {
		return false
	}
	return float64(i)/float64(bars)*100 < progress
}
