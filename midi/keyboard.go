package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// InPort is a live input (usually a keyboard). The driver thread pushes
// messages into a queue that the sequencer drains once per tick.
type InPort struct {
	name     string
	port     drivers.In
	stopFunc func()

	mu      sync.Mutex
	pending [][]byte
	err     error
}

// OpenInput starts listening on an input port by name.
func OpenInput(name string) (*InPort, error) {
	port, ok := matchPort(gomidi.GetInPorts(), name)
	if !ok {
		return nil, fmt.Errorf("%w: input %q", ErrPortNotFound, name)
	}
	in := &InPort{name: port.String(), port: port}

	stop, err := gomidi.ListenTo(port, in.receive, gomidi.HandleError(in.fail))
	if err != nil {
		return nil, fmt.Errorf("open input %q: %w", name, err)
	}
	in.stopFunc = stop
	return in, nil
}

func (in *InPort) receive(msg gomidi.Message, timestampms int32) {
	if IsRealtime(msg) {
		return
	}
	b := append([]byte(nil), msg...)
	in.mu.Lock()
	in.pending = append(in.pending, b)
	in.mu.Unlock()
}

func (in *InPort) fail(err error) {
	in.mu.Lock()
	if in.err == nil {
		in.err = err
	}
	in.mu.Unlock()
}

func (in *InPort) Name() string { return in.name }

// Pending returns and clears everything received since the last call.
func (in *InPort) Pending() [][]byte {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.pending
	in.pending = nil
	return out
}

// Err returns the first error the driver reported.
func (in *InPort) Err() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.err
}

func (in *InPort) Close() error {
	if in.stopFunc != nil {
		in.stopFunc()
		in.stopFunc = nil
	}
	return in.port.Close()
}
