package sequencer

import "go-looper/midi"

// TrackKind identifies what a track or recorder carries
type TrackKind string

const (
	KindMIDI  TrackKind = "MIDI"
	KindAudio TrackKind = "AUDIO"
)

// MIDISender is the slice of the MIDI output a track needs.
type MIDISender interface {
	Send(msg []byte) error
}

// Outputs are the collaborators tracks play into on each tick.
type Outputs struct {
	MIDI MIDISender
}

// Track is one loop: its own length, its own cursor, and an enable state
// that only changes at its own loop boundary while the transport runs.
type Track interface {
	Kind() TrackKind
	Name() string
	LoopLength() int
	Position() int
	Enabled() bool
	ChangeArmed() bool
	Recorded() bool

	DisplayID() int
	SetDisplayID(id int)

	// RequestToggle arms an enable/disable change, or cancels a pending one.
	RequestToggle()
	// SetEnabled changes state immediately (transport stopped).
	SetEnabled(enabled bool)

	// Advance moves the cursor one tick, wrapping after LoopLength.
	Advance()
	// Play emits whatever belongs to the current position.
	Play(out Outputs) error
	// Quantize applies an armed change when the cursor sits on the last tick.
	Quantize()

	// Reset parks the cursor so the next Advance lands on position 1.
	Reset()
	// Silence stops anything still sounding.
	Silence() error
	Close() error
}

// loop holds the state shared by every track kind.
type loop struct {
	name        string
	length      int
	position    int
	enabled     bool
	changeArmed bool
	displayID   int
	recorded    bool
}

func newLoop(name string, length int, recorded bool) (loop, error) {
	if length <= 0 {
		return loop{}, ErrZeroLength
	}
	return loop{name: name, length: length, enabled: true, recorded: recorded}, nil
}

func (l *loop) Name() string        { return l.name }
func (l *loop) LoopLength() int     { return l.length }
func (l *loop) Position() int       { return l.position }
func (l *loop) Enabled() bool       { return l.enabled }
func (l *loop) ChangeArmed() bool   { return l.changeArmed }
func (l *loop) Recorded() bool      { return l.recorded }
func (l *loop) DisplayID() int      { return l.displayID }
func (l *loop) SetDisplayID(id int) { l.displayID = id }

func (l *loop) RequestToggle() {
	l.changeArmed = !l.changeArmed
}

func (l *loop) SetEnabled(enabled bool) {
	l.enabled = enabled
	l.changeArmed = false
}

func (l *loop) Advance() {
	l.position++
	if l.position > l.length {
		l.position = 1
	}
}

func (l *loop) Quantize() {
	if l.changeArmed && l.position == l.length {
		l.enabled = !l.enabled
		l.changeArmed = false
	}
}

func (l *loop) Reset() {
	l.position = 0
}

// MidiTrack plays recorded or loaded MIDI events at their tick offsets.
type MidiTrack struct {
	loop
	events []midi.Event
	byTick map[int][]midi.Event
}

// NewMidiTrack builds a track from absolute-tick events. The loop length is
// the tick of the last end-of-track marker; a track without one, or with a
// zero length, is rejected.
func NewMidiTrack(name string, events []midi.Event, recorded bool) (*MidiTrack, error) {
	length, ok := 0, false
	for _, ev := range events {
		if ev.IsEndOfTrack() {
			length, ok = ev.Tick, true
		}
	}
	if !ok {
		return nil, ErrUnterminated
	}
	l, err := newLoop(name, length, recorded)
	if err != nil {
		return nil, err
	}
	t := &MidiTrack{
		loop:   l,
		events: events,
		byTick: make(map[int][]midi.Event),
	}
	for _, ev := range events {
		if ev.IsMeta() {
			continue
		}
		t.byTick[ev.Tick] = append(t.byTick[ev.Tick], ev)
	}
	return t, nil
}

func (t *MidiTrack) Kind() TrackKind { return KindMIDI }

// Events returns the absolute-tick events including meta messages.
func (t *MidiTrack) Events() []midi.Event { return t.events }

// Play sends every non-meta event at the current position.
func (t *MidiTrack) Play(out Outputs) error {
	if !t.enabled || out.MIDI == nil {
		return nil
	}
	for _, ev := range t.byTick[t.position] {
		if err := out.MIDI.Send(ev.Msg); err != nil {
			return err
		}
	}
	return nil
}

// Silence is a no-op: the session resets the MIDI output as a whole.
func (t *MidiTrack) Silence() error { return nil }
func (t *MidiTrack) Close() error   { return nil }
