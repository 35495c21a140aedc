package sequencer

import (
	"errors"
	"time"

	"go-looper/audio"
)

// fakeTime is the injected wall clock. Tests move it to the clock's next
// deadline to produce exactly one tick per Update.
type fakeTime struct {
	now time.Time
}

func newFakeTime() *fakeTime {
	return &fakeTime{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeTime) Now() time.Time { return f.now }

// tick advances the session by one clock tick.
func tick(s *Session, ft *fakeTime) error {
	ft.now = s.Clock().NextDeadline()
	return s.Update()
}

// tickN advances n ticks and fails on the first error.
func tickN(s *Session, ft *fakeTime, n int) error {
	for i := 0; i < n; i++ {
		if err := tick(s, ft); err != nil {
			return err
		}
	}
	return nil
}

type fakeOut struct {
	sent    [][]byte
	resets  int
	panics  int
	sendErr error
}

func (o *fakeOut) Send(msg []byte) error {
	if o.sendErr != nil {
		return o.sendErr
	}
	o.sent = append(o.sent, msg)
	return nil
}

func (o *fakeOut) Reset() error {
	o.resets++
	return nil
}

func (o *fakeOut) Panic() error {
	o.panics++
	return nil
}

type fakeMIDIInput struct {
	queue  [][]byte
	err    error
	closed bool
}

func (in *fakeMIDIInput) Pending() [][]byte {
	out := in.queue
	in.queue = nil
	return out
}

func (in *fakeMIDIInput) Err() error { return in.err }

func (in *fakeMIDIInput) Close() error {
	in.closed = true
	return nil
}

type fakeAudioInput struct {
	buf    []int16
	format audio.Format
	err    error
	closed bool
}

func (in *fakeAudioInput) Drain() []int16 {
	out := in.buf
	in.buf = nil
	return out
}

func (in *fakeAudioInput) Format() audio.Format { return in.format }
func (in *fakeAudioInput) Err() error           { return in.err }

func (in *fakeAudioInput) Close() error {
	in.closed = true
	return nil
}

type fakeVoice struct {
	starts, stops, closes int
	startErr              error
}

func (v *fakeVoice) Start() error { v.starts++; return v.startErr }
func (v *fakeVoice) Stop() error  { v.stops++; return nil }
func (v *fakeVoice) Close() error { v.closes++; return nil }

type fakeVoices struct {
	loaded []*fakeVoice
	err    error
}

func (f *fakeVoices) Load(samples []int16) (Voice, error) {
	if f.err != nil {
		return nil, f.err
	}
	v := &fakeVoice{}
	f.loaded = append(f.loaded, v)
	return v, nil
}

var errUnplugged = errors.New("device unplugged")

// midiOpener hands out in on every open and counts the opens.
func midiOpener(in *fakeMIDIInput, opens *int) OpenMIDIInput {
	return func(name string) (MIDIInput, error) {
		*opens++
		in.closed = false
		return in, nil
	}
}

func audioOpenerFor(in *fakeAudioInput) OpenAudioInput {
	return func(name string) (AudioInput, error) {
		in.closed = false
		return in, nil
	}
}

func failingMIDIOpener(name string) (MIDIInput, error) {
	return nil, errUnplugged
}
