package midi

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ErrPortNotFound is returned when no port matches a configured name.
var ErrPortNotFound = errors.New("midi port not found")

// Channel-mode controllers used to silence an output
const (
	ccAllSoundOff      uint8 = 120
	ccResetControllers uint8 = 121
	ccAllNotesOff      uint8 = 123
)

// matchPort picks the port whose name equals name, falling back to the
// first whose name starts with it (rtmidi appends client:port numbers).
func matchPort[P interface{ String() string }](ports []P, name string) (P, bool) {
	var zero P
	if name == "" {
		return zero, false
	}
	for _, p := range ports {
		if p.String() == name {
			return p, true
		}
	}
	for _, p := range ports {
		if strings.HasPrefix(p.String(), name) {
			return p, true
		}
	}
	return zero, false
}

// OutPort sends raw messages to a device.
type OutPort struct {
	name string
	port drivers.Out
	send func(gomidi.Message) error
	mu   sync.Mutex
}

// OpenOutput opens an output port by name.
func OpenOutput(name string) (*OutPort, error) {
	port, ok := matchPort(gomidi.GetOutPorts(), name)
	if !ok {
		return nil, fmt.Errorf("%w: output %q", ErrPortNotFound, name)
	}
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open output %q: %w", name, err)
	}
	return &OutPort{name: port.String(), port: port, send: send}, nil
}

func (o *OutPort) Name() string { return o.name }

// Send writes one raw message. Meta messages never reach a device.
func (o *OutPort) Send(msg []byte) error {
	if IsMeta(msg) {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.send(gomidi.Message(msg))
}

// Reset sends all notes off and reset controllers on every channel.
func (o *OutPort) Reset() error {
	return o.channelModes(ccAllNotesOff, ccResetControllers)
}

// Panic is Reset plus all sound off.
func (o *OutPort) Panic() error {
	return o.channelModes(ccAllSoundOff, ccAllNotesOff, ccResetControllers)
}

func (o *OutPort) channelModes(ccs ...uint8) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	var errs []error
	for ch := uint8(0); ch < 16; ch++ {
		for _, cc := range ccs {
			if err := o.send(gomidi.ControlChange(ch, cc, 0)); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (o *OutPort) Close() error {
	return o.port.Close()
}

// InPorts lists input port names.
func InPorts() []string {
	var names []string
	for _, p := range gomidi.GetInPorts() {
		names = append(names, p.String())
	}
	return names
}

// OutPorts lists output port names.
func OutPorts() []string {
	var names []string
	for _, p := range gomidi.GetOutPorts() {
		names = append(names, p.String())
	}
	return names
}
