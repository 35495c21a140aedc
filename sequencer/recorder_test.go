package sequencer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-looper/audio"
	"go-looper/midi"
)

// newBarClock returns a running clock with one tick per beat, so a bar is
// four ticks and lasts four seconds at 60 bpm.
func newBarClock(t *testing.T) *Clock {
	t.Helper()
	c := NewClock()
	require.NoError(t, c.Activate(60, 1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	return c
}

// pulse ticks the clock and feeds the tick to r.
func pulse(c *Clock, r Recorder) (Track, error) {
	c.Update(c.NextDeadline())
	return r.Update(c)
}

func TestMidiRecorderBarAlignedTake(t *testing.T) {
	c := newBarClock(t)
	in := &fakeMIDIInput{}
	opens := 0
	r := NewMidiRecorder("keys", midiOpener(in, &opens))
	assert.Equal(t, KindMIDI, r.Kind())
	assert.Equal(t, RecorderIdle, r.State())

	// ticks 1 and 2
	for i := 0; i < 2; i++ {
		tr, err := pulse(c, r)
		require.NoError(t, err)
		require.Nil(t, tr)
	}

	require.NoError(t, r.RequestToggleArm())
	assert.Equal(t, 1, opens)
	assert.Equal(t, RecorderArmedToStart, r.State())

	// ticks 3 and 4: armed, input drained and dropped
	for i := 0; i < 2; i++ {
		in.queue = append(in.queue, noteOn60)
		_, err := pulse(c, r)
		require.NoError(t, err)
		assert.Equal(t, RecorderArmedToStart, r.State())
		assert.Equal(t, 0, r.ElapsedTicks())
	}

	// tick 5 is the bar start
	_, err := pulse(c, r)
	require.NoError(t, err)
	require.Equal(t, 1, c.RelativeTick())
	assert.Equal(t, RecorderCapturing, r.State())
	assert.Equal(t, 1, r.ElapsedTicks())

	// tick 6: a note and a clock message
	in.queue = append(in.queue, noteOn60, []byte{0xF8})
	_, err = pulse(c, r)
	require.NoError(t, err)

	require.NoError(t, r.RequestToggleArm())
	assert.Equal(t, RecorderArmedToStop, r.State())

	// tick 7, 8
	in.queue = append(in.queue, noteOff60)
	_, err = pulse(c, r)
	require.NoError(t, err)
	_, err = pulse(c, r)
	require.NoError(t, err)
	assert.Equal(t, 4, r.ElapsedTicks())

	// tick 9 finalizes
	tr, err := pulse(c, r)
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, RecorderIdle, r.State())
	assert.True(t, in.closed)

	mt := tr.(*MidiTrack)
	assert.Equal(t, "MidiRec 1", mt.Name())
	assert.Equal(t, 4, mt.LoopLength())
	assert.True(t, mt.Recorded())
	assert.Equal(t, []midi.Event{
		{Tick: 2, Msg: noteOn60},
		{Tick: 3, Msg: noteOff60},
		midi.EndOfTrack(4),
	}, mt.Events())
}

func TestMidiRecorderTakesAreNumbered(t *testing.T) {
	c := newBarClock(t)
	in := &fakeMIDIInput{}
	opens := 0
	r := NewMidiRecorder("keys", midiOpener(in, &opens))

	var names []string
	for take := 0; take < 2; take++ {
		require.NoError(t, r.RequestToggleArm())
		var tr Track
		for i := 0; i < 12 && tr == nil; i++ {
			var err error
			tr, err = pulse(c, r)
			require.NoError(t, err)
			if r.State() == RecorderCapturing {
				require.NoError(t, r.RequestToggleArm())
			}
		}
		require.NotNil(t, tr)
		names = append(names, tr.Name())
	}
	assert.Equal(t, []string{"MidiRec 1", "MidiRec 2"}, names)
	assert.Equal(t, 2, opens)
}

func TestMidiRecorderCancelBeforeBar(t *testing.T) {
	c := newBarClock(t)
	in := &fakeMIDIInput{}
	opens := 0
	r := NewMidiRecorder("keys", midiOpener(in, &opens))

	_, err := pulse(c, r)
	require.NoError(t, err)

	require.NoError(t, r.RequestToggleArm())
	require.NoError(t, r.RequestToggleArm())
	assert.Equal(t, RecorderIdle, r.State())
	assert.True(t, in.closed)

	// the bar passes without a capture starting
	for i := 0; i < 8; i++ {
		tr, err := pulse(c, r)
		require.NoError(t, err)
		assert.Nil(t, tr)
	}
	assert.Equal(t, RecorderIdle, r.State())
}

func TestMidiRecorderCancelStop(t *testing.T) {
	c := newBarClock(t)
	in := &fakeMIDIInput{}
	opens := 0
	r := NewMidiRecorder("keys", midiOpener(in, &opens))

	require.NoError(t, r.RequestToggleArm())
	_, err := pulse(c, r) // tick 1 starts capture
	require.NoError(t, err)
	require.Equal(t, RecorderCapturing, r.State())

	require.NoError(t, r.RequestToggleArm())
	require.NoError(t, r.RequestToggleArm())
	assert.Equal(t, RecorderCapturing, r.State())

	// the next bar start does not finalize
	for i := 0; i < 4; i++ {
		tr, err := pulse(c, r)
		require.NoError(t, err)
		assert.Nil(t, tr)
	}
	assert.Equal(t, 5, r.ElapsedTicks())
	assert.False(t, in.closed)
}

func TestMidiRecorderOpenFailure(t *testing.T) {
	r := NewMidiRecorder("missing", failingMIDIOpener)
	err := r.RequestToggleArm()
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.ErrorIs(t, err, errUnplugged)
	assert.Equal(t, RecorderIdle, r.State())
}

func TestMidiRecorderInterrupted(t *testing.T) {
	c := newBarClock(t)
	in := &fakeMIDIInput{}
	opens := 0
	r := NewMidiRecorder("keys", midiOpener(in, &opens))

	require.NoError(t, r.RequestToggleArm())
	for i := 0; i < 3; i++ {
		_, err := pulse(c, r)
		require.NoError(t, err)
	}
	in.queue = append(in.queue, noteOn60)
	in.err = errUnplugged

	tr, err := pulse(c, r)
	assert.ErrorIs(t, err, ErrCaptureInterrupted)
	assert.ErrorIs(t, err, errUnplugged)
	require.NotNil(t, tr)
	assert.Equal(t, 4, tr.LoopLength())
	assert.Equal(t, RecorderIdle, r.State())
	assert.True(t, in.closed)

	// the message drained on the failing tick is kept
	assert.Contains(t, tr.(*MidiTrack).Events(), midi.Event{Tick: 4, Msg: noteOn60})
}

func TestMidiRecorderStop(t *testing.T) {
	c := newBarClock(t)
	in := &fakeMIDIInput{}
	opens := 0
	r := NewMidiRecorder("keys", midiOpener(in, &opens))

	// armed only: cancelled
	require.NoError(t, r.RequestToggleArm())
	tr, err := r.Stop(c)
	require.NoError(t, err)
	assert.Nil(t, tr)
	assert.Equal(t, RecorderIdle, r.State())
	assert.True(t, in.closed)

	// capturing: kept
	require.NoError(t, r.RequestToggleArm())
	for i := 0; i < 2; i++ {
		_, err := pulse(c, r)
		require.NoError(t, err)
	}
	tr, err = r.Stop(c)
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, 2, tr.LoopLength())
	assert.Equal(t, RecorderIdle, r.State())

	// idle: nothing
	tr, err = r.Stop(c)
	assert.NoError(t, err)
	assert.Nil(t, tr)
}

func TestRecorderIgnoresUpdatesWithoutTick(t *testing.T) {
	c := newBarClock(t)
	in := &fakeMIDIInput{}
	opens := 0
	r := NewMidiRecorder("keys", midiOpener(in, &opens))
	require.NoError(t, r.RequestToggleArm())

	c.Update(c.StartTime())
	require.False(t, c.JustTicked())
	tr, err := r.Update(c)
	assert.NoError(t, err)
	assert.Nil(t, tr)
	assert.Equal(t, RecorderArmedToStart, r.State())
}

func TestMidiRecorderKeepsInputBeforeFinalBar(t *testing.T) {
	c := newBarClock(t)
	in := &fakeMIDIInput{}
	opens := 0
	r := NewMidiRecorder("keys", midiOpener(in, &opens))

	require.NoError(t, r.RequestToggleArm())
	_, err := pulse(c, r) // tick 1 starts the take
	require.NoError(t, err)
	in.queue = append(in.queue, noteOn60)
	_, err = pulse(c, r)
	require.NoError(t, err)
	require.NoError(t, r.RequestToggleArm())
	for i := 0; i < 2; i++ {
		_, err = pulse(c, r)
		require.NoError(t, err)
	}

	// released after tick 4, before the downbeat that ends the take
	in.queue = append(in.queue, noteOff60, []byte{0xF8})
	tr, err := pulse(c, r)
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, []midi.Event{
		{Tick: 2, Msg: noteOn60},
		{Tick: 4, Msg: noteOff60},
		midi.EndOfTrack(4),
	}, tr.(*MidiTrack).Events())
	assert.True(t, in.closed)
}

func TestMidiRecorderStopKeepsPendingInput(t *testing.T) {
	c := newBarClock(t)
	in := &fakeMIDIInput{}
	opens := 0
	r := NewMidiRecorder("keys", midiOpener(in, &opens))

	require.NoError(t, r.RequestToggleArm())
	in.queue = append(in.queue, noteOn60)
	_, err := pulse(c, r)
	require.NoError(t, err)

	in.queue = append(in.queue, noteOff60)
	tr, err := r.Stop(c)
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, []midi.Event{
		{Tick: 1, Msg: noteOn60},
		{Tick: 1, Msg: noteOff60},
		midi.EndOfTrack(1),
	}, tr.(*MidiTrack).Events())
}

func TestAudioRecorderTrimsTake(t *testing.T) {
	c := newBarClock(t)
	format := audio.Format{SampleRate: 10, Channels: 2}
	in := &fakeAudioInput{format: format}
	voices := &fakeVoices{}
	r := NewAudioRecorder("mic", audioOpenerFor(in), voices)
	assert.Equal(t, KindAudio, r.Kind())

	require.NoError(t, r.RequestToggleArm())
	// each tick lasts one second: 20 interleaved samples, plus some slack
	for i := 0; i < 4; i++ {
		in.buf = make([]int16, 25)
		for j := range in.buf {
			in.buf[j] = int16(i + 1)
		}
		_, err := pulse(c, r)
		require.NoError(t, err)
		if i == 0 {
			require.NoError(t, r.RequestToggleArm())
		}
	}
	assert.Equal(t, RecorderArmedToStop, r.State())

	tr, err := pulse(c, r)
	require.NoError(t, err)
	require.NotNil(t, tr)

	at := tr.(*AudioTrack)
	assert.Equal(t, "AudioRec 1", at.Name())
	assert.Equal(t, 4, at.LoopLength())
	assert.Equal(t, format, at.Format())
	assert.Len(t, at.Samples(), 80)
	assert.Equal(t, int16(1), at.Samples()[0])
	assert.Equal(t, int16(4), at.Samples()[79])
	assert.True(t, at.HasVoice())
	assert.Len(t, voices.loaded, 1)
	assert.True(t, in.closed)
}

func TestAudioRecorderDropsArmedInput(t *testing.T) {
	c := newBarClock(t)
	in := &fakeAudioInput{format: audio.Format{SampleRate: 10, Channels: 1}}
	r := NewAudioRecorder("mic", audioOpenerFor(in), nil)

	_, err := pulse(c, r)
	require.NoError(t, err)
	require.NoError(t, r.RequestToggleArm())

	for i := 0; i < 3; i++ {
		in.buf = []int16{9, 9, 9}
		_, err := pulse(c, r)
		require.NoError(t, err)
	}
	require.Equal(t, RecorderArmedToStart, r.State())

	in.buf = []int16{1, 1}
	_, err = pulse(c, r) // tick 5, bar start
	require.NoError(t, err)
	require.Equal(t, RecorderCapturing, r.State())

	tr, err := r.Stop(c)
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, []int16{1, 1}, tr.(*AudioTrack).Samples())
	assert.False(t, tr.(*AudioTrack).HasVoice())
}

func TestAudioRecorderVoiceFailureKeepsTake(t *testing.T) {
	c := newBarClock(t)
	in := &fakeAudioInput{format: audio.Format{SampleRate: 10, Channels: 1}}
	r := NewAudioRecorder("mic", audioOpenerFor(in), &fakeVoices{err: errUnplugged})

	require.NoError(t, r.RequestToggleArm())
	in.buf = []int16{1, 2, 3}
	_, err := pulse(c, r)
	require.NoError(t, err)

	tr, err := r.Stop(c)
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.ErrorIs(t, err, errUnplugged)
	require.NotNil(t, tr)
	assert.False(t, tr.(*AudioTrack).HasVoice())
}

func TestAudioRecorderWithoutPlaybackDevice(t *testing.T) {
	c := newBarClock(t)
	in := &fakeAudioInput{format: audio.Format{SampleRate: 10, Channels: 1}}
	r := NewAudioRecorder("mic", audioOpenerFor(in), NoVoices(errUnplugged))

	require.NoError(t, r.RequestToggleArm())
	in.buf = []int16{1, 2, 3}
	_, err := pulse(c, r)
	require.NoError(t, err)

	// samples that arrive after the last tick still make the take
	in.buf = []int16{4}
	tr, err := r.Stop(c)
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.ErrorIs(t, err, errUnplugged)
	require.NotNil(t, tr)
	assert.Equal(t, []int16{1, 2, 3, 4}, tr.(*AudioTrack).Samples())
	assert.False(t, tr.(*AudioTrack).HasVoice())
}

func TestAudioRecorderOpenFailure(t *testing.T) {
	r := NewAudioRecorder("mic", func(string) (AudioInput, error) { return nil, errUnplugged }, nil)
	err := r.RequestToggleArm()
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.ErrorIs(t, err, errUnplugged)
	assert.Equal(t, RecorderIdle, r.State())
}

func TestAudioRecorderInterrupted(t *testing.T) {
	c := newBarClock(t)
	in := &fakeAudioInput{format: audio.Format{SampleRate: 10, Channels: 1}}
	r := NewAudioRecorder("mic", audioOpenerFor(in), nil)

	require.NoError(t, r.RequestToggleArm())
	_, err := pulse(c, r)
	require.NoError(t, err)

	in.err = errUnplugged
	tr, err := pulse(c, r)
	assert.ErrorIs(t, err, ErrCaptureInterrupted)
	require.NotNil(t, tr)
	assert.Equal(t, 2, tr.LoopLength())
	assert.Equal(t, RecorderIdle, r.State())
	assert.True(t, in.closed)
}

func TestRecorderStateString(t *testing.T) {
	assert.Equal(t, "idle", RecorderIdle.String())
	assert.Equal(t, "armed", RecorderArmedToStart.String())
	assert.Equal(t, "recording", RecorderCapturing.String())
	assert.Equal(t, "stopping", RecorderArmedToStop.String())
}
