// Package playback plays loop buffers through oto. Each buffer becomes a
// voice that restarts from its first frame on Start.
package playback

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"

	"go-looper/audio"
)

// Mixer owns the oto context. Only one can exist per process.
type Mixer struct {
	ctx    *oto.Context
	format audio.Format
}

// NewMixer opens the output device and waits until it is ready.
func NewMixer(format audio.Format) (*Mixer, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Mixer{ctx: ctx, format: format}, nil
}

func (m *Mixer) Format() audio.Format { return m.format }

// player is the part of *oto.Player a voice drives.
type player interface {
	Pause()
	Play()
	Seek(offset int64, whence int) (int64, error)
	Close() error
}

// Voice is one buffer bound to its own player.
type Voice struct {
	mu     sync.Mutex
	player player
	ctx    interface{ Err() error }
}

// NewVoice encodes samples and binds them to a paused player.
func (m *Mixer) NewVoice(samples []int16) (*Voice, error) {
	if err := m.ctx.Err(); err != nil {
		return nil, fmt.Errorf("oto context: %w", err)
	}
	data := audio.Int16ToLE(samples, make([]byte, 0, len(samples)*2))
	return &Voice{player: m.ctx.NewPlayer(bytes.NewReader(data)), ctx: m.ctx}, nil
}

// Start rewinds and plays. It fails once the output device has gone away.
func (v *Voice) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.ctx.Err(); err != nil {
		return fmt.Errorf("oto context: %w", err)
	}
	v.player.Pause()
	if _, err := v.player.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind voice: %w", err)
	}
	v.player.Play()
	return nil
}

func (v *Voice) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.player.Pause()
	if err := v.ctx.Err(); err != nil {
		return fmt.Errorf("oto context: %w", err)
	}
	return nil
}

func (v *Voice) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.player.Close()
}
