package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-looper/midi"
	"go-looper/sequencer"
	"go-looper/theme"
)

type fakeManager struct {
	state   sequencer.State
	status  string
	updates chan struct{}

	calls      []string
	controller midi.Controller
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		updates: make(chan struct{}, 1),
		state: sequencer.State{
			Playing:      true,
			Tempo:        120,
			TicksPerBeat: 192,
			AbsoluteTick: 1000,
			Beat:         2,
			Tracks: []sequencer.TrackState{
				{ID: 1, Name: "Bass", Kind: sequencer.KindMIDI, LoopLength: 768, Position: 384, Enabled: true},
				{ID: 2, Name: "AudioRec 1", Kind: sequencer.KindAudio, LoopLength: 768, Position: 10, ChangeArmed: true},
			},
			Recorders: []sequencer.RecorderInfo{
				{Kind: sequencer.KindMIDI, State: sequencer.RecorderCapturing, ElapsedTicks: 77},
				{Kind: sequencer.KindAudio, State: sequencer.RecorderIdle},
			},
		},
	}
}

func (f *fakeManager) State() sequencer.State   { return f.state }
func (f *fakeManager) Status() string           { return f.status }
func (f *fakeManager) Updates() <-chan struct{} { return f.updates }
func (f *fakeManager) TogglePlay()              { f.calls = append(f.calls, "play") }
func (f *fakeManager) DeleteLastAudio()         { f.calls = append(f.calls, "delete") }
func (f *fakeManager) Save()                    { f.calls = append(f.calls, "save") }
func (f *fakeManager) Stop()                    { f.calls = append(f.calls, "stop") }

func (f *fakeManager) ToggleTrack(id int) {
	f.calls = append(f.calls, "track "+string(rune('0'+id)))
}

func (f *fakeManager) ToggleRecorder(kind sequencer.TrackKind) {
	f.calls = append(f.calls, "rec "+string(kind))
}

func (f *fakeManager) SetController(c midi.Controller) { f.controller = c }

func press(t *testing.T, m Model, names ...string) Model {
	t.Helper()
	for _, k := range names {
		var msg tea.KeyMsg
		switch k {
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestKeysDriveManager(t *testing.T) {
	fm := newFakeManager()
	m := NewModel(fm, nil, theme.New(nil))

	m = press(t, m, "p", "r", "a", "2", "d", "g")
	assert.Equal(t, []string{"play", "rec MIDI", "rec AUDIO", "track 2", "delete", "save"}, fm.calls)
	assert.Equal(t, 2, m.selected)

	fm.calls = nil
	m = press(t, m, "left", "space", "right", "right", "space")
	assert.Equal(t, []string{"track 1", "track 2"}, fm.calls)
	assert.Equal(t, 2, m.selected)
}

func TestQuit(t *testing.T) {
	fm := newFakeManager()
	m := NewModel(fm, nil, theme.New(nil))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"stop"}, fm.calls)
	assert.Empty(t, next.(Model).View())
}

func TestView(t *testing.T) {
	fm := newFakeManager()
	fm.status = "saved 1 midi, 0 audio file(s)"
	m := NewModel(fm, nil, theme.New(nil))

	out := m.View()
	assert.Contains(t, out, "PLAY")
	assert.Contains(t, out, "[ ][+][ ][ ]")
	assert.Contains(t, out, "120.00 bpm")
	assert.Contains(t, out, "MIDI_REC: recording (77 ticks)")
	assert.Contains(t, out, "AUDIO_REC: idle")
	assert.Contains(t, out, "Bass")
	assert.Contains(t, out, "384/768")
	assert.Contains(t, out, "AudioRec 1")
	assert.Contains(t, out, fm.status)
	assert.NotContains(t, out, "■ loop")

	fm.state.Tracks = nil
	assert.Contains(t, m.View(), "no loops yet")
}

func TestDeviceEvents(t *testing.T) {
	fm := newFakeManager()
	m := NewModel(fm, nil, theme.New(nil))
	ctrl := &stubController{id: "lp"}

	next, _ := m.Update(DeviceEventMsg{Type: midi.DeviceConnected, Controller: ctrl, ID: "lp"})
	m = next.(Model)
	assert.Equal(t, ctrl, fm.controller)
	assert.Contains(t, m.View(), "loop - press to toggle")

	next, _ = m.Update(DeviceEventMsg{Type: midi.DeviceDisconnected, ID: "other"})
	m = next.(Model)
	assert.NotNil(t, fm.controller)

	next, _ = m.Update(DeviceEventMsg{Type: midi.DeviceDisconnected, ID: "lp"})
	m = next.(Model)
	assert.Nil(t, fm.controller)
	assert.Nil(t, m.controller)
}

func TestUpdatesRelisten(t *testing.T) {
	fm := newFakeManager()
	m := NewModel(fm, nil, theme.New(nil))

	fm.updates <- struct{}{}
	msg := ListenForUpdates(fm)()
	assert.Equal(t, UpdateMsg{}, msg)

	_, cmd := m.Update(msg)
	assert.NotNil(t, cmd)
	assert.Nil(t, ListenForDevices(nil))
}

type stubController struct{ id string }

func (c *stubController) ID() string                                 { return c.id }
func (c *stubController) Type() midi.ControllerType                  { return midi.ControllerLaunchpad }
func (c *stubController) PadEvents() <-chan midi.PadEvent            { return nil }
func (c *stubController) SetLEDBatch(updates []midi.LEDUpdate) error { return nil }
func (c *stubController) Close() error                               { return nil }
