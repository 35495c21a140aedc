package midi

// ControllerType identifies the kind of control surface
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerLaunchpad
)

func (t ControllerType) String() string {
	if t == ControllerLaunchpad {
		return "launchpad"
	}
	return "unknown"
}

// PadEvent is sent when a pad or button is pressed. Row 8 is the top row of
// round buttons, column 8 the side column.
type PadEvent struct {
	Row, Col int
	Velocity uint8
}

// LEDUpdate sets one pad. Channel selects static, flashing or pulsing.
type LEDUpdate struct {
	Row, Col int
	Color    [3]uint8
	Channel  uint8
}

// Controller is a grid control surface with LED feedback.
type Controller interface {
	ID() string
	Type() ControllerType

	PadEvents() <-chan PadEvent

	// SetLEDBatch applies several LED changes; callers diff beforehand.
	SetLEDBatch(updates []LEDUpdate) error

	Close() error
}

// LED modes (the MIDI channel the pad colour is sent on)
const (
	ChannelStatic uint8 = 0
	ChannelFlash  uint8 = 1
	ChannelPulse  uint8 = 2
)
