package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Speak    key.Binding
	SpeakAll key.Binding
	Stop     key.Binding
	Faster   key.Binding
	Slower   key.Binding
	Voice    key.Binding
	Emotion  key.Binding
	Copy     key.Binding
	Reload   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "previous paragraph")),
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "next paragraph")),
		Speak:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "speak paragraph")),
		SpeakAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "speak all")),
		Stop:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Faster:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
		Slower:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "slower")),
		Voice:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "choose voice")),
		Emotion:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "toggle emotion")),
		Copy:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy report")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "analyse again")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Speak, k.SpeakAll, k.Stop, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Speak, k.SpeakAll, k.Stop},
		{k.Faster, k.Slower, k.Voice, k.Emotion},
		{k.Copy, k.Reload, k.Help, k.Quit},
	}
}

// viewportKeys leaves j/k to paragraph selection.
func viewportKeys() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown", "f", " ")),
		PageUp:       key.NewBinding(key.WithKeys("pgup", "b")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d", "d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u", "u")),
	}
}
