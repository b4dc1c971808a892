package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the confirmation prompt.
type keyMap struct {
	yes  key.Binding
	no   key.Binding
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		yes:  key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "yes")),
		no:   key.NewBinding(key.WithKeys("n", "N", "enter"), key.WithHelp("n/enter", "no")),
		quit: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.yes, k.no, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.yes, k.no}, {k.quit}}
}
