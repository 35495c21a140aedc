package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-looper/midi"
	"go-looper/sequencer"
	"go-looper/theme"
	"go-looper/widgets"
)

// Manager is the part of the sequencer manager the UI drives.
type Manager interface {
	State() sequencer.State
	Status() string
	Updates() <-chan struct{}

	TogglePlay()
	ToggleTrack(id int)
	ToggleRecorder(kind sequencer.TrackKind)
	DeleteLastAudio()
	Save()
	SetController(c midi.Controller)
	Stop()
}

type Model struct {
	Manager   Manager
	DeviceMgr *midi.DeviceManager
	Theme     *theme.Theme

	help       help.Model
	selected   int // display id, 0 = none
	quitting   bool
	controller midi.Controller
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

// NewModel builds the UI. deviceMgr may be nil (no control surface).
func NewModel(manager Manager, deviceMgr *midi.DeviceManager, th *theme.Theme) Model {
	return Model{
		Manager:   manager,
		DeviceMgr: deviceMgr,
		Theme:     th,
		help:      help.New(),
		selected:  1,
	}
}

func ListenForUpdates(manager Manager) tea.Cmd {
	return func() tea.Msg {
		<-manager.Updates()
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	if deviceMgr == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(ListenForUpdates(m.Manager), ListenForDevices(m.DeviceMgr))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case UpdateMsg:
		return m, ListenForUpdates(m.Manager)

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		switch event.Type {
		case midi.DeviceConnected:
			m.controller = event.Controller
			m.Manager.SetController(event.Controller)
		case midi.DeviceDisconnected:
			if m.controller != nil && m.controller.ID() == event.ID {
				m.controller = nil
				m.Manager.SetController(nil)
			}
		}
		return m, ListenForDevices(m.DeviceMgr)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.Manager.State()
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		m.Manager.Stop()
		return m, tea.Quit
	case key.Matches(msg, keys.Play):
		m.Manager.TogglePlay()
	case key.Matches(msg, keys.ArmMIDI):
		m.Manager.ToggleRecorder(sequencer.KindMIDI)
	case key.Matches(msg, keys.ArmAudio):
		m.Manager.ToggleRecorder(sequencer.KindAudio)
	case key.Matches(msg, keys.Track):
		id := int(msg.String()[0] - '0')
		m.selected = id
		m.Manager.ToggleTrack(id)
	case key.Matches(msg, keys.Left):
		if m.selected > 1 {
			m.selected--
		}
	case key.Matches(msg, keys.Right):
		if m.selected < len(st.Tracks) {
			m.selected++
		}
	case key.Matches(msg, keys.Toggle):
		if _, ok := st.Track(m.selected); ok {
			m.Manager.ToggleTrack(m.selected)
		}
	case key.Matches(msg, keys.Delete):
		m.Manager.DeleteLastAudio()
	case key.Matches(msg, keys.Save):
		m.Manager.Save()
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	st := m.Manager.State()

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render("go-looper"))
	out.WriteString("  ")
	out.WriteString(m.transport(st))
	out.WriteString("\n\n")
	out.WriteString(m.recorders(st))
	out.WriteString("\n\n")
	out.WriteString(m.tracks(st))
	out.WriteString("\n")

	if m.controller != nil {
		out.WriteString("\n")
		out.WriteString(widgets.RenderLaunchpad(pads(st)))
		out.WriteString("\n")
		out.WriteString(widgets.RenderLegendItem([3]uint8{0, 255, 0}, "loop", "press to toggle at its loop end"))
		out.WriteString("\n")
	}

	if status := m.Manager.Status(); status != "" {
		out.WriteString("\n")
		out.WriteString(lipgloss.NewStyle().Foreground(m.Theme.Warning()).Render(status))
		out.WriteString("\n")
	}
	out.WriteString("\n")
	out.WriteString(dimStyle.Render(m.help.View(keys)))
	return out.String()
}

// transport renders the beat indicator, tempo and tick counters.
func (m Model) transport(st sequencer.State) string {
	var beats strings.Builder
	for b := 1; b <= sequencer.BeatsPerBar; b++ {
		if st.Playing && st.Beat == b {
			beats.WriteString(m.Theme.Symbols.BeatOn)
		} else {
			beats.WriteString(m.Theme.Symbols.BeatOff)
		}
	}
	state := "STOP"
	if st.Playing {
		state = "PLAY"
	}
	return fmt.Sprintf("%s  %s  %6.2f bpm  %d tpb  tick %d",
		state, beats.String(), st.Tempo, st.TicksPerBeat, st.AbsoluteTick)
}

func (m Model) recorders(st sequencer.State) string {
	var parts []string
	for _, r := range st.Recorders {
		label := fmt.Sprintf("%s_REC: %s", r.Kind, r.State)
		style := lipgloss.NewStyle().Foreground(m.Theme.Muted())
		switch r.State {
		case sequencer.RecorderArmedToStart, sequencer.RecorderArmedToStop:
			style = style.Foreground(m.Theme.Warning())
		case sequencer.RecorderCapturing:
			style = style.Foreground(m.Theme.Active())
			label += fmt.Sprintf(" (%d ticks)", r.ElapsedTicks)
		}
		parts = append(parts, style.Render(label))
	}
	return strings.Join(parts, "   ")
}

const progressWidth = 24

func (m Model) tracks(st sequencer.State) string {
	if len(st.Tracks) == 0 {
		return lipgloss.NewStyle().Foreground(m.Theme.Muted()).Render("no loops yet: arm a recorder with r or a")
	}
	sym := m.Theme.Symbols
	var lines []string
	for _, t := range st.Tracks {
		cursor := " "
		if t.ID == m.selected {
			cursor = string(sym.Cursor)
		}
		icon, color := sym.Stopped, m.Theme.Muted()
		switch {
		case t.ChangeArmed:
			icon, color = sym.Armed, m.Theme.Warning()
		case t.Enabled:
			icon, color = sym.Playing, m.Theme.Success()
		}
		filled := int(t.Progress() * progressWidth)
		bar := strings.Repeat(string(sym.Progress), filled) + strings.Repeat(string(sym.Rest), progressWidth-filled)
		line := fmt.Sprintf("%s %2d %c %-5s %-14s %s %5d/%d",
			cursor, t.ID, icon, t.Kind, t.Name, bar, t.Position, t.LoopLength)
		lines = append(lines, lipgloss.NewStyle().Foreground(color).Render(line))
	}
	return strings.Join(lines, "\n")
}

func pads(st sequencer.State) []widgets.Pad {
	leds := sequencer.RenderLEDs(st)
	out := make([]widgets.Pad, 0, len(leds))
	for _, l := range leds {
		out = append(out, widgets.Pad{Row: l.Row, Col: l.Col, Color: l.Color})
	}
	return out
}
