package sequencer

import (
	"errors"
	"fmt"

	"go-looper/debug"
	"go-looper/midi"
)

// MidiRecorder records a MIDI input into MidiTracks.
type MidiRecorder struct {
	capture

	device string
	open   OpenMIDIInput
	in     MIDIInput

	pending []midi.Event
	takes   int
}

func NewMidiRecorder(device string, open OpenMIDIInput) *MidiRecorder {
	r := &MidiRecorder{device: device, open: open}
	r.capture = capture{openIn: r.openInput, closeIn: r.release}
	return r
}

func (r *MidiRecorder) Kind() TrackKind { return KindMIDI }

func (r *MidiRecorder) openInput() error {
	if r.in != nil {
		return nil
	}
	in, err := r.open(r.device)
	if err != nil {
		return fmt.Errorf("%w: midi input %q: %w", ErrDeviceUnavailable, r.device, err)
	}
	r.in = in
	return nil
}

func (r *MidiRecorder) Update(c *Clock) (Track, error) {
	if !c.JustTicked() {
		return nil, nil
	}
	if r.fires(c) {
		if r.capturing {
			return r.finalize()
		}
		r.begin()
		r.pending = nil
		debug.Log("rec", "midi capture started at tick %d", c.AbsoluteTick())
	}
	if r.in == nil {
		return nil, nil
	}
	if !r.capturing {
		// armed to start: whatever was played before the bar is dropped
		r.in.Pending()
		return nil, nil
	}

	r.elapsed++
	r.collect()

	if err := r.in.Err(); err != nil {
		t, ferr := r.finalize()
		return t, errors.Join(fmt.Errorf("%w: midi input %q: %w", ErrCaptureInterrupted, r.device, err), ferr)
	}
	return nil, nil
}

func (r *MidiRecorder) Stop(*Clock) (Track, error) {
	if r.stop() {
		return r.finalize()
	}
	return nil, nil
}

// collect stamps everything drained from the input at the current tick.
func (r *MidiRecorder) collect() {
	for _, msg := range r.in.Pending() {
		if midi.IsRealtime(msg) {
			continue
		}
		r.pending = append(r.pending, midi.Event{Tick: r.elapsed, Msg: msg})
	}
}

// finalize turns the pending buffer into a track terminated at the
// elapsed tick count. Input that arrived since the last tick belongs to
// that tick.
func (r *MidiRecorder) finalize() (Track, error) {
	if r.in != nil && r.elapsed > 0 {
		r.collect()
	}
	if r.elapsed == 0 {
		r.capturing = false
		r.pending = nil
		r.release()
		return nil, nil
	}
	events := append(r.pending, midi.EndOfTrack(r.elapsed))
	r.pending = nil
	r.capturing = false
	r.release()

	t, err := NewMidiTrack(fmt.Sprintf("MidiRec %d", r.takes+1), events, true)
	if err != nil {
		return nil, fmt.Errorf("finalize midi take: %w", err)
	}
	r.takes++
	debug.Log("rec", "midi take %q: %d ticks, %d events", t.Name(), t.LoopLength(), len(events)-1)
	return t, nil
}

func (r *MidiRecorder) release() {
	if r.in == nil {
		return
	}
	closeInput(KindMIDI, r.in)
	r.in = nil
}
