package sequencer

import (
	"fmt"

	"go-looper/audio"
)

// Voice is a playback handle for one decoded buffer.
type Voice interface {
	Start() error // restart from the beginning of the buffer
	Stop() error
	Close() error
}

// VoiceLoader turns a sample buffer into a playable voice.
type VoiceLoader interface {
	Load(samples []int16) (Voice, error)
}

// NoVoices is the loader used when the playback device could not be opened.
// Every Load reports err.
func NoVoices(err error) VoiceLoader { return noVoices{err} }

type noVoices struct{ err error }

func (n noVoices) Load([]int16) (Voice, error) { return nil, n.err }

// AudioTrack restarts its buffer every time its cursor returns to 1.
type AudioTrack struct {
	loop
	samples []int16
	format  audio.Format
	voice   Voice
}

// NewAudioTrack wraps a decoded buffer. A nil voice makes a silent track,
// which can still be saved.
func NewAudioTrack(name string, samples []int16, format audio.Format, length int, voice Voice, recorded bool) (*AudioTrack, error) {
	l, err := newLoop(name, length, recorded)
	if err != nil {
		return nil, err
	}
	return &AudioTrack{loop: l, samples: samples, format: format, voice: voice}, nil
}

func (t *AudioTrack) Kind() TrackKind      { return KindAudio }
func (t *AudioTrack) Samples() []int16     { return t.samples }
func (t *AudioTrack) Format() audio.Format { return t.format }
func (t *AudioTrack) HasVoice() bool       { return t.voice != nil }
func (t *AudioTrack) AttachVoice(v Voice)  { t.voice = v }

// Play fires the playback edge: start at position 1 when enabled, stop at
// position 1 when not.
func (t *AudioTrack) Play(Outputs) error {
	if t.position != 1 || t.voice == nil {
		return nil
	}
	var err error
	if t.enabled {
		err = t.voice.Start()
	} else {
		err = t.voice.Stop()
	}
	if err != nil {
		return fmt.Errorf("%w: playback %q: %w", ErrDeviceUnavailable, t.name, err)
	}
	return nil
}

func (t *AudioTrack) Silence() error {
	if t.voice == nil {
		return nil
	}
	return t.voice.Stop()
}

func (t *AudioTrack) Close() error {
	if t.voice == nil {
		return nil
	}
	return t.voice.Close()
}
