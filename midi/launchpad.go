package midi

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go-looper/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

var ledSendCount atomic.Uint64

// Novation SysEx header for the Launchpad X
var lpHeader = []byte{0x00, 0x20, 0x29, 0x02, 0x0C}

// Launchpad drives a Launchpad X in programmer mode.
type Launchpad struct {
	id       string
	send     func(msg gomidi.Message) error
	stopFunc func()

	pads      chan PadEvent
	closeOnce sync.Once
}

// NewLaunchpad switches the device to programmer mode and starts listening
// for pad presses. Either port may be nil.
func NewLaunchpad(id string, in drivers.In, out drivers.Out) (*Launchpad, error) {
	lp := &Launchpad{id: id, pads: make(chan PadEvent, 32)}

	if out != nil {
		send, err := gomidi.SendTo(out)
		if err != nil {
			return nil, fmt.Errorf("open launchpad output: %w", err)
		}
		lp.send = send
		if err := lp.sysex(
			[]byte{0x00, 0x7F},       // programmer mode
			[]byte{0x08, 0x7F},       // full brightness
			[]byte{0x0A, 0x01, 0x01}, // external LED feedback
		); err != nil {
			return nil, fmt.Errorf("init launchpad: %w", err)
		}
	}

	if in != nil {
		stop, err := gomidi.ListenTo(in, lp.receive)
		if err != nil {
			return nil, fmt.Errorf("open launchpad input: %w", err)
		}
		lp.stopFunc = stop
	}
	return lp, nil
}

func (lp *Launchpad) sysex(cmds ...[]byte) error {
	var errs []error
	for _, c := range cmds {
		body := append(append([]byte(nil), lpHeader...), c...)
		errs = append(errs, lp.send(gomidi.SysEx(body)))
	}
	return errors.Join(errs...)
}

func (lp *Launchpad) receive(msg gomidi.Message, timestampms int32) {
	var ch, key, val uint8
	row, col := -1, -1
	switch {
	case msg.GetNoteOn(&ch, &key, &val) && val > 0:
		row, col = noteToRowCol(key)
	case msg.GetControlChange(&ch, &key, &val) && val > 0:
		row, col = ccToRowCol(key)
	}
	if row < 0 {
		return
	}
	select {
	case lp.pads <- PadEvent{Row: row, Col: col, Velocity: val}:
	default:
	}
}

func (lp *Launchpad) ID() string                 { return lp.id }
func (lp *Launchpad) Type() ControllerType       { return ControllerLaunchpad }
func (lp *Launchpad) PadEvents() <-chan PadEvent { return lp.pads }

// SetLEDBatch sends one NoteOn per pad.
func (lp *Launchpad) SetLEDBatch(updates []LEDUpdate) error {
	if lp.send == nil || len(updates) == 0 {
		return nil
	}
	var errs []error
	for _, u := range updates {
		errs = append(errs, lp.send(gomidi.NoteOn(u.Channel, rowColToNote(u.Row, u.Col), nearestColor(u.Color))))
	}
	n := ledSendCount.Add(uint64(len(updates)))
	debug.LogEvery(100, "lp-send", "led sends=%d (batch=%d)", n, len(updates))
	return errors.Join(errs...)
}

// Close blanks every LED and stops listening.
func (lp *Launchpad) Close() error {
	var err error
	lp.closeOnce.Do(func() {
		if lp.send != nil {
			var off []LEDUpdate
			for row := 0; row <= 8; row++ {
				for col := 0; col <= 8; col++ {
					if row == 8 && col == 8 {
						continue // logo
					}
					off = append(off, LEDUpdate{Row: row, Col: col})
				}
			}
			err = lp.SetLEDBatch(off)
		}
		if lp.stopFunc != nil {
			lp.stopFunc()
		}
		close(lp.pads)
	})
	return err
}

// Launchpad X palette entries: velocity, r, g, b
var lpPalette = [][4]uint8{
	{0, 0, 0, 0},
	{3, 255, 255, 255},
	{5, 255, 0, 0},
	{7, 180, 60, 60},
	{9, 255, 100, 0},
	{13, 255, 200, 0},
	{17, 0, 180, 0},
	{19, 0, 100, 0},
	{21, 0, 255, 0},
	{37, 0, 200, 200},
	{43, 40, 60, 120},
	{45, 0, 100, 255},
	{49, 150, 0, 200},
	{53, 255, 80, 180},
	{84, 255, 150, 50},
	{97, 180, 180, 60},
}

// nearestColor maps an RGB value to the closest palette velocity.
func nearestColor(rgb [3]uint8) uint8 {
	best, bestDist := uint8(0), -1
	for _, p := range lpPalette {
		dr := int(rgb[0]) - int(p[1])
		dg := int(rgb[1]) - int(p[2])
		db := int(rgb[2]) - int(p[3])
		if d := dr*dr + dg*dg + db*db; bestDist < 0 || d < bestDist {
			best, bestDist = p[0], d
		}
	}
	return best
}

// Programmer mode layout: grid row r (0 = bottom), col c is note 10(r+1)+c+1,
// the side column is col 8 of the same rows, the top row is CC 91-98.
func rowColToNote(row, col int) uint8 {
	if row == 8 {
		return uint8(91 + col)
	}
	return uint8((row+1)*10 + col + 1)
}

func noteToRowCol(note uint8) (row, col int) {
	if note >= 91 && note <= 98 {
		return 8, int(note - 91)
	}
	row = int(note/10) - 1
	col = int(note%10) - 1
	if row < 0 || row > 7 || col < 0 || col > 8 {
		return -1, -1
	}
	return row, col
}

func ccToRowCol(cc uint8) (row, col int) {
	if cc >= 91 && cc <= 98 {
		return 8, int(cc - 91)
	}
	return -1, -1
}
