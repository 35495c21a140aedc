package sequencer

import (
	"go-looper/audio"
	"go-looper/debug"
)

// RecorderState is derived from the capturing and armed flags.
type RecorderState int

const (
	RecorderIdle RecorderState = iota
	RecorderArmedToStart
	RecorderCapturing
	RecorderArmedToStop
)

func (s RecorderState) String() string {
	switch s {
	case RecorderArmedToStart:
		return "armed"
	case RecorderCapturing:
		return "recording"
	case RecorderArmedToStop:
		return "stopping"
	default:
		return "idle"
	}
}

// Recorder captures a live input into a new track. Arm requests fire only
// on the first tick of a master bar.
type Recorder interface {
	Kind() TrackKind
	State() RecorderState
	Armed() bool
	Capturing() bool
	ElapsedTicks() int

	// RequestToggleArm arms a start/stop, or cancels a pending one. Arming
	// from idle opens the input device.
	RequestToggleArm() error
	// Update consumes one clock pulse. It returns the finished track when a
	// take is finalized on this tick.
	Update(c *Clock) (Track, error)
	// Stop finalizes a running take immediately and cancels a pending start.
	Stop(c *Clock) (Track, error)
}

// MIDIInput is a live input filled by the device thread and drained here.
type MIDIInput interface {
	Pending() [][]byte
	Err() error
	Close() error
}

// AudioInput is a capture stream filled by the device callback.
type AudioInput interface {
	Drain() []int16
	Format() audio.Format
	Err() error
	Close() error
}

// OpenMIDIInput opens a MIDI input by device name.
type OpenMIDIInput func(name string) (MIDIInput, error)

// OpenAudioInput opens an audio capture stream by device name.
type OpenAudioInput func(name string) (AudioInput, error)

// capture is the arm/fire state shared by both recorder kinds. openIn and
// closeIn bind the variant's input device.
type capture struct {
	capturing bool
	armed     bool
	elapsed   int

	openIn  func() error
	closeIn func()
}

func (c *capture) Armed() bool       { return c.armed }
func (c *capture) Capturing() bool   { return c.capturing }
func (c *capture) ElapsedTicks() int { return c.elapsed }

func (c *capture) State() RecorderState {
	switch {
	case c.capturing && c.armed:
		return RecorderArmedToStop
	case c.capturing:
		return RecorderCapturing
	case c.armed:
		return RecorderArmedToStart
	default:
		return RecorderIdle
	}
}

func (c *capture) RequestToggleArm() error {
	if c.armed {
		c.armed = false
		if !c.capturing {
			c.closeIn()
		}
		return nil
	}
	if !c.capturing {
		if err := c.openIn(); err != nil {
			return err
		}
	}
	c.armed = true
	return nil
}

// stop drops any pending arm and reports whether a running take must be
// finalized.
func (c *capture) stop() bool {
	if c.capturing {
		c.armed = false
		return true
	}
	if c.armed {
		c.armed = false
		c.closeIn()
	}
	return false
}

// fires reports whether an armed request is due on this tick, and consumes
// the arm if so.
func (c *capture) fires(clk *Clock) bool {
	if !c.armed || !clk.IsBarStart() {
		return false
	}
	c.armed = false
	return true
}

func (c *capture) begin() {
	c.capturing = true
	c.elapsed = 0
}

func closeInput(kind TrackKind, closer interface{ Close() error }) {
	if err := closer.Close(); err != nil {
		debug.Log("rec", "%s input close: %v", kind, err)
	}
}
