package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	"go-looper/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// DeviceEvent is emitted when a control surface connects or disconnects
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// DeviceManager polls the driver for control surfaces and hot-plugs them.
// A driver must be registered by the importing binary.
type DeviceManager struct {
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration

	// scanTimeout bounds one port listing; some backends hang.
	scanTimeout time.Duration
}

func NewDeviceManager() *DeviceManager {
	return &DeviceManager{
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
		pollRate:    time.Second,
		scanTimeout: 3 * time.Second,
	}
}

// Events returns connect/disconnect notifications. Closed when Run returns.
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controller returns the first connected control surface, or nil.
func (dm *DeviceManager) Controller() Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	for _, c := range dm.controllers {
		return c
	}
	return nil
}

// Run scans until ctx is done (blocking)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	dm.scan()
	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan()
		}
	}
}

type portList struct {
	ins  []drivers.In
	outs []drivers.Out
}

func (dm *DeviceManager) listPorts() (portList, bool) {
	ch := make(chan portList, 1)
	go func() {
		ch <- portList{ins: gomidi.GetInPorts(), outs: gomidi.GetOutPorts()}
	}()
	select {
	case pl := <-ch:
		return pl, true
	case <-time.After(dm.scanTimeout):
		debug.Log("devices", "port scan timed out")
		return portList{}, false
	}
}

func (dm *DeviceManager) scan() {
	pl, ok := dm.listPorts()
	if !ok {
		return
	}

	seen := make(map[string]bool)
	for _, in := range pl.ins {
		id := in.String()
		if !isLaunchpad(id) {
			continue
		}
		seen[id] = true

		dm.mu.RLock()
		_, exists := dm.controllers[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		var out drivers.Out
		for _, o := range pl.outs {
			if strings.EqualFold(o.String(), id) {
				out = o
				break
			}
		}
		lp, err := NewLaunchpad(id, in, out)
		if err != nil {
			debug.Log("devices", "launchpad %q: %v", id, err)
			continue
		}

		dm.mu.Lock()
		dm.controllers[id] = lp
		dm.mu.Unlock()
		dm.events <- DeviceEvent{Type: DeviceConnected, Controller: lp, ID: id}
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	for id, c := range dm.controllers {
		if seen[id] {
			continue
		}
		c.Close()
		delete(dm.controllers, id)
		dm.events <- DeviceEvent{Type: DeviceDisconnected, ID: id}
	}
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}

func isLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}
