package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Play     key.Binding
	ArmMIDI  key.Binding
	ArmAudio key.Binding
	Track    key.Binding
	Left     key.Binding
	Right    key.Binding
	Toggle   key.Binding
	Delete   key.Binding
	Save     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Play:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play/stop")),
	ArmMIDI:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "arm midi rec")),
	ArmAudio: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "arm audio rec")),
	Track:    key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "toggle track")),
	Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "select prev")),
	Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "select next")),
	Toggle:   key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "toggle selected")),
	Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete last audio")),
	Save:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "save takes")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.ArmMIDI, k.ArmAudio, k.Track, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.ArmMIDI, k.ArmAudio},
		{k.Track, k.Left, k.Right, k.Toggle},
		{k.Delete, k.Save, k.Help, k.Quit},
	}
}
