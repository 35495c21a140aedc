// Package capture records from an audio input through PortAudio. The device
// callback appends to a buffer that the sequencer drains once per tick.
package capture

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"go-looper/audio"
	"go-looper/debug"
)

// ErrStalled is reported when the device stops delivering buffers.
var ErrStalled = errors.New("audio input stalled")

// StallTimeout is how long the callback may stay silent before the stream
// counts as interrupted.
const StallTimeout = time.Second

// Init initializes PortAudio; pair with Terminate.
func Init() error {
	return portaudio.Initialize()
}

func Terminate() error {
	return portaudio.Terminate()
}

// Devices lists input-capable device names.
func Devices() ([]string, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, d := range devs {
		if d.MaxInputChannels > 0 {
			names = append(names, d.Name)
		}
	}
	return names, nil
}

func findDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" || name == "default" {
		return portaudio.DefaultInputDevice()
	}
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, d := range devs {
		if d.MaxInputChannels > 0 && strings.HasPrefix(d.Name, name) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: input %q", audio.ErrDeviceNotFound, name)
}

// Stream is an open, running input stream.
type Stream struct {
	format audio.Format
	stream *portaudio.Stream

	mu       sync.Mutex
	buf      []int16
	last     time.Time
	overflow int
	now      func() time.Time
}

// Open starts capturing from the named device (empty = default).
func Open(name string, format audio.Format, framesPerBuffer int) (*Stream, error) {
	dev, err := findDevice(name)
	if err != nil {
		return nil, err
	}
	s := &Stream{format: format, now: time.Now}
	s.last = s.now()

	p := portaudio.LowLatencyParameters(dev, nil)
	p.Input.Channels = format.Channels
	p.SampleRate = float64(format.SampleRate)
	p.FramesPerBuffer = framesPerBuffer

	st, err := portaudio.OpenStream(p, s.callback)
	if err != nil {
		return nil, fmt.Errorf("open input %q: %w", dev.Name, err)
	}
	if err := st.Start(); err != nil {
		st.Close()
		return nil, fmt.Errorf("start input %q: %w", dev.Name, err)
	}
	s.stream = st
	debug.Log("audio", "capture open: %s %dHz x%d", dev.Name, format.SampleRate, format.Channels)
	return s, nil
}

func (s *Stream) callback(in []int16, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	s.mu.Lock()
	s.buf = append(s.buf, in...)
	s.last = s.now()
	if flags&portaudio.InputOverflow != 0 {
		s.overflow++
	}
	s.mu.Unlock()
}

// Drain returns and clears everything captured since the last call.
func (s *Stream) Drain() []int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.buf
	s.buf = nil
	if s.overflow > 0 {
		debug.LogEvery(10, "audio", "input overflow x%d", s.overflow)
		s.overflow = 0
	}
	return out
}

func (s *Stream) Format() audio.Format { return s.format }

// Err reports a stall once the callback has been silent for StallTimeout.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gap := s.now().Sub(s.last); gap > StallTimeout {
		return fmt.Errorf("%w: no buffers for %v", ErrStalled, gap.Round(time.Millisecond))
	}
	return nil
}

func (s *Stream) Close() error {
	if s.stream == nil {
		return nil
	}
	err := errors.Join(s.stream.Stop(), s.stream.Close())
	s.stream = nil
	return err
}
