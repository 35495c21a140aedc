package sequencer

import (
	"errors"
	"fmt"
	"time"

	"go-looper/debug"
)

// MIDIOutput is the output port a session plays into.
type MIDIOutput interface {
	MIDISender
	// Reset silences every channel (all notes off, reset controllers).
	Reset() error
	// Panic is Reset plus all sound off, sent on shutdown.
	Panic() error
}

// Options configure a Session.
type Options struct {
	Tempo        float64
	TicksPerBeat int

	// MIDIOut may be nil when no output port is configured.
	MIDIOut   MIDIOutput
	Recorders []Recorder

	// Now defaults to time.Now.
	Now func() time.Time
}

// Session owns the clock, the loops and the recorders, and advances all of
// them on each clock tick. It is not safe for concurrent use; the Manager
// serializes access.
type Session struct {
	tempo        float64
	ticksPerBeat int
	now          func() time.Time

	out       MIDIOutput
	clock     *Clock
	tracks    []Track
	recorders []Recorder
	active    bool
}

// NewSession validates the clock parameters. The session starts inactive.
func NewSession(opts Options) (*Session, error) {
	if opts.Tempo <= 0 || opts.TicksPerBeat <= 0 {
		return nil, fmt.Errorf("%w: tempo=%v ticks_per_beat=%d", ErrInvalidClock, opts.Tempo, opts.TicksPerBeat)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		tempo:        opts.Tempo,
		ticksPerBeat: opts.TicksPerBeat,
		now:          now,
		out:          opts.MIDIOut,
		clock:        NewClock(),
		recorders:    opts.Recorders,
	}, nil
}

func (s *Session) Tempo() float64    { return s.tempo }
func (s *Session) TicksPerBeat() int { return s.ticksPerBeat }
func (s *Session) Clock() *Clock     { return s.clock }
func (s *Session) IsActive() bool    { return s.active }

// Tracks returns the loops in display order.
func (s *Session) Tracks() []Track {
	return append([]Track(nil), s.tracks...)
}

func (s *Session) Recorders() []Recorder {
	return append([]Recorder(nil), s.recorders...)
}

// RecordedTracks returns the takes recorded during this session.
func (s *Session) RecordedTracks() []Track {
	var out []Track
	for _, t := range s.tracks {
		if t.Recorded() {
			out = append(out, t)
		}
	}
	return out
}

// AddTrack appends a loop. While the session runs the track waits, parked,
// for the next tick.
func (s *Session) AddTrack(t Track) {
	t.Reset()
	s.tracks = append(s.tracks, t)
	t.SetDisplayID(len(s.tracks))
}

// Track looks a loop up by display id.
func (s *Session) Track(id int) (Track, error) {
	for _, t := range s.tracks {
		if t.DisplayID() == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrNoTrack, id)
}

// RemoveTrack silences, closes and drops a loop, then renumbers the rest.
func (s *Session) RemoveTrack(id int) error {
	for i, t := range s.tracks {
		if t.DisplayID() != id {
			continue
		}
		s.tracks = append(s.tracks[:i], s.tracks[i+1:]...)
		s.renumber()
		return errors.Join(t.Silence(), t.Close())
	}
	return fmt.Errorf("%w: %d", ErrNoTrack, id)
}

// RemoveLastAudioTrack drops the most recently added audio loop.
func (s *Session) RemoveLastAudioTrack() (Track, error) {
	for i := len(s.tracks) - 1; i >= 0; i-- {
		t := s.tracks[i]
		if t.Kind() != KindAudio {
			continue
		}
		return t, s.RemoveTrack(t.DisplayID())
	}
	return nil, fmt.Errorf("%w: no audio track", ErrNoTrack)
}

func (s *Session) renumber() {
	for i, t := range s.tracks {
		t.SetDisplayID(i + 1)
	}
}

// ToggleTrack arms an enable/disable change for the next loop boundary.
// With the transport stopped there is no boundary, so it applies at once.
func (s *Session) ToggleTrack(id int) error {
	t, err := s.Track(id)
	if err != nil {
		return err
	}
	if s.active {
		t.RequestToggle()
	} else {
		t.SetEnabled(!t.Enabled())
	}
	return nil
}

// ToggleRecorder arms or disarms the recorder of the given kind.
func (s *Session) ToggleRecorder(kind TrackKind) error {
	for _, r := range s.recorders {
		if r.Kind() == kind {
			return r.RequestToggleArm()
		}
	}
	return fmt.Errorf("%w: %s", ErrNoRecorder, kind)
}

// Activate starts a fresh clock anchored at now and parks every loop so the
// first tick lands on position 1.
func (s *Session) Activate() error {
	if s.active {
		return nil
	}
	clock := NewClock()
	if err := clock.Activate(s.tempo, s.ticksPerBeat, s.now()); err != nil {
		return err
	}
	s.clock = clock
	for _, t := range s.tracks {
		t.Reset()
	}
	s.active = true
	debug.Log("session", "activated: tempo=%v tpb=%d tracks=%d", s.tempo, s.ticksPerBeat, len(s.tracks))
	return nil
}

// Deactivate stops the clock, keeps any take in progress, and leaves every
// output silent.
func (s *Session) Deactivate() error {
	if !s.active {
		return nil
	}
	var errs []error
	for _, r := range s.recorders {
		t, err := r.Stop(s.clock)
		if err != nil {
			errs = append(errs, err)
		}
		if t != nil {
			s.AddTrack(t)
		}
	}

	s.clock.Deactivate()
	s.active = false

	for _, t := range s.tracks {
		t.Reset()
		if err := t.Silence(); err != nil {
			errs = append(errs, fmt.Errorf("silence %q: %w", t.Name(), err))
		}
	}
	if s.out != nil {
		if err := s.out.Reset(); err != nil {
			errs = append(errs, fmt.Errorf("reset midi output: %w", err))
		}
	}
	debug.Log("session", "deactivated at tick %d", s.clock.AbsoluteTick())
	return errors.Join(errs...)
}

// Update is called by the driver at a high fixed rate. It never blocks.
// Errors are non-fatal and are returned joined.
func (s *Session) Update() error {
	if !s.active {
		return nil
	}
	s.clock.Update(s.now())
	if !s.clock.JustTicked() {
		return nil
	}

	var errs []error
	var fresh []Track
	for _, r := range s.recorders {
		t, err := r.Update(s.clock)
		if err != nil {
			errs = append(errs, err)
		}
		if t != nil {
			fresh = append(fresh, t)
		}
	}

	out := Outputs{}
	if s.out != nil {
		out.MIDI = s.out
	}

	for _, t := range s.tracks {
		t.Advance()
		if err := t.Play(out); err != nil {
			errs = append(errs, fmt.Errorf("play %q: %w", t.Name(), err))
		}
		t.Quantize()
	}

	// A take finalized on this tick is born on its own first tick: it joins
	// at position 1 without being advanced past it.
	for _, t := range fresh {
		s.AddTrack(t)
		t.Advance()
		if err := t.Play(out); err != nil {
			errs = append(errs, fmt.Errorf("play %q: %w", t.Name(), err))
		}
		t.Quantize()
	}
	return errors.Join(errs...)
}

// Close stops the session, panics the MIDI output and releases every voice.
func (s *Session) Close() error {
	errs := []error{s.Deactivate()}
	for _, t := range s.tracks {
		errs = append(errs, t.Close())
	}
	if s.out != nil {
		errs = append(errs, s.out.Panic())
	}
	return errors.Join(errs...)
}

// Snapshot copies the aggregate loop state.
func (s *Session) Snapshot() State {
	st := State{
		Playing:      s.active,
		Tempo:        s.tempo,
		TicksPerBeat: s.ticksPerBeat,
		AbsoluteTick: s.clock.AbsoluteTick(),
		RelativeTick: s.clock.RelativeTick(),
		Beat:         s.clock.Beat(),
		Tracks:       make([]TrackState, 0, len(s.tracks)),
		Recorders:    make([]RecorderInfo, 0, len(s.recorders)),
	}
	for _, t := range s.tracks {
		st.Tracks = append(st.Tracks, TrackState{
			ID:          t.DisplayID(),
			Name:        t.Name(),
			Kind:        t.Kind(),
			LoopLength:  t.LoopLength(),
			Position:    t.Position(),
			Enabled:     t.Enabled(),
			ChangeArmed: t.ChangeArmed(),
			Recorded:    t.Recorded(),
		})
	}
	for _, r := range s.recorders {
		st.Recorders = append(st.Recorders, RecorderInfo{
			Kind:         r.Kind(),
			State:        r.State(),
			ElapsedTicks: r.ElapsedTicks(),
		})
	}
	return st
}
