package main

import (
	"sync"

	"go-looper/audio"
	"go-looper/audio/capture"
	"go-looper/audio/playback"
	"go-looper/debug"
	"go-looper/midi"
	"go-looper/sequencer"
)

// Adapters from the concrete device packages to the interfaces the
// sequencer consumes. Each returns a nil interface on error, never a typed
// nil pointer.

func openMIDIInput(name string) (sequencer.MIDIInput, error) {
	in, err := midi.OpenInput(name)
	if err != nil {
		return nil, err
	}
	return in, nil
}

// audioInputs initializes PortAudio on the first open, so a session that
// never arms the audio recorder never touches the audio host.
type audioInputs struct {
	format          audio.Format
	framesPerBuffer int

	mu     sync.Mutex
	active bool
}

func (a *audioInputs) Open(name string) (sequencer.AudioInput, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		if err := capture.Init(); err != nil {
			return nil, err
		}
		a.active = true
	}
	s, err := capture.Open(name, a.format, a.framesPerBuffer)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (a *audioInputs) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return
	}
	if err := capture.Terminate(); err != nil {
		debug.Log("audio", "portaudio terminate: %v", err)
	}
	a.active = false
}

type mixerVoices struct {
	mixer *playback.Mixer
}

// newVoiceLoader opens the playback device. When it cannot be opened the
// loader reports the failure on every load instead.
func newVoiceLoader(format audio.Format) sequencer.VoiceLoader {
	m, err := playback.NewMixer(format)
	if err != nil {
		debug.Log("audio", "playback unavailable: %v", err)
		return sequencer.NoVoices(err)
	}
	return &mixerVoices{mixer: m}
}

func (v *mixerVoices) Load(samples []int16) (sequencer.Voice, error) {
	voice, err := v.mixer.NewVoice(samples)
	if err != nil {
		return nil, err
	}
	return voice, nil
}
