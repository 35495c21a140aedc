// Package audio holds the sample format shared by capture, playback and WAV
// persistence. Device bindings live in the capture and playback subpackages.
package audio

import (
	"errors"
	"math"
	"time"
)

// ErrDeviceNotFound is returned when no device matches a configured name.
var ErrDeviceNotFound = errors.New("audio device not found")

// Format describes interleaved signed 16-bit PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat matches the mixer settings the looper has always used.
var DefaultFormat = Format{SampleRate: 44100, Channels: 1}

// Frames returns how many frames a buffer of interleaved samples holds.
func (f Format) Frames(samples int) int {
	if f.Channels <= 0 {
		return 0
	}
	return samples / f.Channels
}

// Duration returns the playing time of a buffer of interleaved samples.
func (f Format) Duration(samples int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(f.Frames(samples)) / float64(f.SampleRate) * float64(time.Second))
}

// SamplesFor returns the interleaved sample count covering d seconds.
func (f Format) SamplesFor(seconds float64) int {
	frames := int(math.Round(seconds * float64(f.SampleRate)))
	return frames * f.Channels
}

// Int16ToLE encodes samples as little-endian bytes, reusing dst's capacity.
func Int16ToLE(samples []int16, dst []byte) []byte {
	dst = dst[:0]
	for _, s := range samples {
		dst = append(dst, byte(s), byte(uint16(s)>>8))
	}
	return dst
}
