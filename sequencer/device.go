package sequencer

import "go-looper/midi"

// LEDState describes the state of a single LED
type LEDState struct {
	Row, Col int
	Color    [3]uint8 // RGB; the controller maps it to its palette
	Channel  uint8    // midi.ChannelStatic, ChannelFlash or ChannelPulse
}

// Control surface layout: the 8x8 grid holds track slots numbered from the
// top left, the top row holds transport and recorder buttons, and the side
// column counts beats from the top.
const (
	GridSize  = 8
	SlotCount = GridSize * GridSize
	topRow    = 8
	sideCol   = 8
)

// PadAction is what a pad press does
type PadAction int

const (
	PadNone PadAction = iota
	PadToggleTrack
	PadTogglePlay
	PadArmMIDI
	PadArmAudio
	PadSave
	PadDeleteAudio
)

var topButtons = [GridSize]PadAction{PadTogglePlay, PadArmMIDI, PadArmAudio, PadSave, PadDeleteAudio}

// SlotID returns the display id of a grid pad (row 0 is the bottom row).
func SlotID(row, col int) int {
	return (GridSize-1-row)*GridSize + col + 1
}

// SlotPad is the inverse of SlotID.
func SlotPad(id int) (row, col int) {
	i := id - 1
	return GridSize - 1 - i/GridSize, i % GridSize
}

// PadActionFor maps a pad press to an action; id is set for PadToggleTrack.
func PadActionFor(row, col int) (action PadAction, id int) {
	switch {
	case row == topRow && col >= 0 && col < GridSize:
		return topButtons[col], 0
	case row >= 0 && row < GridSize && col >= 0 && col < GridSize:
		return PadToggleTrack, SlotID(row, col)
	}
	return PadNone, 0
}

var (
	colorTrackOn    = [3]uint8{0, 255, 0}
	colorTrackOff   = [3]uint8{0, 100, 0}
	colorArmed      = [3]uint8{255, 200, 0}
	colorRecIdle    = [3]uint8{180, 60, 60}
	colorRecording  = [3]uint8{255, 0, 0}
	colorStopping   = [3]uint8{255, 100, 0}
	colorPlayIdle   = [3]uint8{0, 100, 0}
	colorSave       = [3]uint8{0, 100, 255}
	colorDelete     = [3]uint8{180, 80, 40}
	colorBeat       = [3]uint8{255, 255, 255}
	colorBeatIdle   = [3]uint8{40, 60, 120}
	colorAudioTrack = [3]uint8{0, 200, 200}
)

// RenderLEDs draws the control surface for a snapshot. Pads left out are
// off.
func RenderLEDs(st State) []LEDState {
	var leds []LEDState

	for _, t := range st.Tracks {
		if t.ID < 1 || t.ID > SlotCount {
			continue
		}
		row, col := SlotPad(t.ID)
		led := LEDState{Row: row, Col: col, Color: colorTrackOff, Channel: midi.ChannelStatic}
		switch {
		case t.ChangeArmed:
			led.Color, led.Channel = colorArmed, midi.ChannelFlash
		case t.Enabled && t.Kind == KindAudio:
			led.Color = colorAudioTrack
		case t.Enabled:
			led.Color = colorTrackOn
		}
		if st.Playing && t.Enabled && !t.ChangeArmed {
			led.Channel = midi.ChannelPulse
		}
		leds = append(leds, led)
	}

	play := LEDState{Row: topRow, Col: 0, Color: colorPlayIdle}
	if st.Playing {
		play.Color, play.Channel = colorTrackOn, midi.ChannelPulse
	}
	leds = append(leds, play)

	for i, kind := range []TrackKind{KindMIDI, KindAudio} {
		r, ok := st.Recorder(kind)
		if !ok {
			continue
		}
		led := LEDState{Row: topRow, Col: 1 + i, Color: colorRecIdle}
		switch r.State {
		case RecorderArmedToStart:
			led.Color, led.Channel = colorArmed, midi.ChannelFlash
		case RecorderCapturing:
			led.Color, led.Channel = colorRecording, midi.ChannelPulse
		case RecorderArmedToStop:
			led.Color, led.Channel = colorStopping, midi.ChannelFlash
		}
		leds = append(leds, led)
	}
	leds = append(leds,
		LEDState{Row: topRow, Col: 3, Color: colorSave},
		LEDState{Row: topRow, Col: 4, Color: colorDelete},
	)

	for b := 1; b <= BeatsPerBar; b++ {
		led := LEDState{Row: GridSize - b, Col: sideCol, Color: colorBeatIdle}
		if st.Playing && st.Beat == b {
			led.Color = colorBeat
		}
		leds = append(leds, led)
	}
	return leds
}
