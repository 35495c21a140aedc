package sequencer

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"go-looper/debug"
	"go-looper/midi"
)

// LED refresh rate
const ledFPS = 30

// publishEvery bounds how often the polling loop copies a snapshot.
const publishEvery = 10 * time.Millisecond

// Manager drives a Session from a dedicated goroutine. Everything that
// touches the session runs on that goroutine: UI and control-surface
// requests are queued as commands and applied between updates.
type Manager struct {
	session      *Session
	store        *TakeStore
	song         *midi.Song
	pollInterval time.Duration

	cmds     chan func()
	stopChan chan struct{}
	done     chan struct{}
	saves    sync.WaitGroup

	mu          sync.RWMutex
	state       State
	status      string
	lastPublish time.Time

	// LED rendering at fixed FPS
	ctrlMu     sync.Mutex
	controller midi.Controller
	ledDirty   bool
	prevLEDs   map[[2]int]LEDState

	// Notify TUI of updates
	UpdateChan chan struct{}
}

// NewManager wraps a session. store may be nil (saving disabled); song is
// the loaded file, if any, carried into saves.
func NewManager(session *Session, store *TakeStore, song *midi.Song, pollInterval time.Duration) *Manager {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Microsecond
	}
	m := &Manager{
		session:      session,
		store:        store,
		song:         song,
		pollInterval: pollInterval,
		cmds:         make(chan func(), 64),
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
		prevLEDs:     make(map[[2]int]LEDState),
		UpdateChan:   make(chan struct{}, 1),
	}
	m.state = session.Snapshot()
	return m
}

// Start launches the polling loop and the UI/LED loop.
func (m *Manager) Start() {
	go m.run()
	go m.uiLoop()
}

// Stop ends the loop, closes the session (silencing every output) and waits
// for pending saves.
func (m *Manager) Stop() {
	select {
	case <-m.stopChan:
		return
	default:
	}
	close(m.stopChan)
	<-m.done
	m.saves.Wait()
}

func (m *Manager) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(m.done)

	for {
		select {
		case <-m.stopChan:
			if err := m.session.Close(); err != nil {
				debug.Log("session", "close: %v", err)
			}
			m.publish(true)
			return
		default:
		}

		m.drainCommands()
		m.step()
		time.Sleep(m.pollInterval)
	}
}

func (m *Manager) drainCommands() {
	for {
		select {
		case fn := <-m.cmds:
			fn()
			m.publish(true)
		default:
			return
		}
	}
}

func (m *Manager) step() {
	if err := m.session.Update(); err != nil {
		debug.Log("session", "update: %v", err)
		m.setStatus(err.Error())
	}
	clock := m.session.Clock()
	if !clock.JustTicked() {
		return
	}
	if lag := clock.Lag(m.session.now()); lag > 1 {
		debug.LogEvery(100, "clock", "behind by %d ticks at tick %d", lag, clock.AbsoluteTick())
	}
	m.publish(false)
}

// publish copies the session snapshot for readers on other goroutines.
func (m *Manager) publish(force bool) {
	now := time.Now()
	if !force && now.Sub(m.lastPublish) < publishEvery {
		return
	}
	st := m.session.Snapshot()
	m.mu.Lock()
	m.state = st
	m.lastPublish = now
	m.ledDirty = true
	m.mu.Unlock()
}

// do queues fn for the polling goroutine. Errors go to the status line.
func (m *Manager) do(fn func(s *Session) error) {
	select {
	case m.cmds <- func() {
		if err := fn(m.session); err != nil {
			debug.Log("cmd", "%v", err)
			m.setStatus(err.Error())
		}
	}:
	case <-m.stopChan:
	}
}

// State returns the latest published snapshot.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Status is the latest error or notice, for the status line.
func (m *Manager) Status() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s string) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	m.notifyUpdate()
}

// TogglePlay activates or deactivates the session.
func (m *Manager) TogglePlay() {
	m.do(func(s *Session) error {
		if s.IsActive() {
			m.setStatus("stopped")
			return s.Deactivate()
		}
		m.setStatus("playing")
		return s.Activate()
	})
}

func (m *Manager) ToggleTrack(id int) {
	m.do(func(s *Session) error { return s.ToggleTrack(id) })
}

func (m *Manager) ToggleRecorder(kind TrackKind) {
	m.do(func(s *Session) error { return s.ToggleRecorder(kind) })
}

// DeleteLastAudio removes the newest audio loop.
func (m *Manager) DeleteLastAudio() {
	m.do(func(s *Session) error {
		t, err := s.RemoveLastAudioTrack()
		if err != nil {
			return err
		}
		m.setStatus(fmt.Sprintf("deleted %s", t.Name()))
		return nil
	})
}

// Save collects the takes on the polling goroutine and writes them from
// another so the clock never waits on the disk.
func (m *Manager) Save() {
	m.do(func(s *Session) error {
		if m.store == nil {
			return fmt.Errorf("saving is not configured")
		}
		job := NewSaveJob(s, m.song)
		if job.Empty() {
			m.setStatus("nothing recorded to save")
			return nil
		}
		m.saves.Add(1)
		go func() {
			defer m.saves.Done()
			res, err := m.store.Save(job)
			if err != nil {
				debug.Log("save", "%v", err)
				m.setStatus("save failed: " + err.Error())
				return
			}
			m.setStatus(fmt.Sprintf("saved %d midi, %d audio file(s)", boolCount(res.MIDIFile != ""), len(res.AudioFiles)))
		}()
		return nil
	})
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}

// HandlePad routes a control-surface press.
func (m *Manager) HandlePad(row, col int) {
	action, id := PadActionFor(row, col)
	switch action {
	case PadToggleTrack:
		m.ToggleTrack(id)
	case PadTogglePlay:
		m.TogglePlay()
	case PadArmMIDI:
		m.ToggleRecorder(KindMIDI)
	case PadArmAudio:
		m.ToggleRecorder(KindAudio)
	case PadSave:
		m.Save()
	case PadDeleteAudio:
		m.DeleteLastAudio()
	}
}

// SetController attaches a control surface (nil detaches) and forwards its
// pad presses.
func (m *Manager) SetController(c midi.Controller) {
	m.ctrlMu.Lock()
	m.controller = c
	m.prevLEDs = make(map[[2]int]LEDState) // the diff clears whatever is lit
	m.ctrlMu.Unlock()
	m.markLEDsDirty()
	if c == nil {
		return
	}
	debug.Log("ctrl", "controller %s attached", c.ID())
	go func() {
		for ev := range c.PadEvents() {
			m.HandlePad(ev.Row, ev.Col)
		}
	}()
}

func (m *Manager) markLEDsDirty() {
	m.mu.Lock()
	m.ledDirty = true
	m.mu.Unlock()
}

// uiLoop flushes LEDs and wakes the TUI at a fixed rate.
func (m *Manager) uiLoop() {
	ticker := time.NewTicker(time.Second / ledFPS)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			dirty := m.ledDirty
			m.ledDirty = false
			st := m.state
			m.mu.Unlock()

			if dirty {
				m.flushLEDs(st)
				m.notifyUpdate()
			}
		}
	}
}

// flushLEDs sends only the LEDs that changed since the last flush.
func (m *Manager) flushLEDs(st State) {
	m.ctrlMu.Lock()
	defer m.ctrlMu.Unlock()
	if m.controller == nil {
		return
	}

	next := make(map[[2]int]LEDState)
	var updates []midi.LEDUpdate
	for _, led := range RenderLEDs(st) {
		key := [2]int{led.Row, led.Col}
		next[key] = led
		if prev, ok := m.prevLEDs[key]; !ok || prev != led {
			updates = append(updates, midi.LEDUpdate{Row: led.Row, Col: led.Col, Color: led.Color, Channel: led.Channel})
		}
	}
	for key := range m.prevLEDs {
		if _, ok := next[key]; !ok {
			updates = append(updates, midi.LEDUpdate{Row: key[0], Col: key[1]})
		}
	}

	if len(updates) > 0 {
		debug.Log("led", "flush: batch=%d prev=%d", len(updates), len(m.prevLEDs))
		if err := m.controller.SetLEDBatch(updates); err != nil {
			debug.LogEvery(30, "led", "send: %v", err)
		}
	}
	m.prevLEDs = next
}

// Updates fires (coalesced) whenever there is something new to draw.
func (m *Manager) Updates() <-chan struct{} {
	return m.UpdateChan
}

func (m *Manager) notifyUpdate() {
	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}
