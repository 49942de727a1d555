package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	toggle  key.Binding
	seekB   key.Binding
	seekF   key.Binding
	volUp   key.Binding
	volDown key.Binding
	expand  key.Binding
	refresh key.Binding
	analyze key.Binding
	guest   key.Binding
	signOut key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		seekB:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "seek -5s")),
		seekF:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "seek +5s")),
		volUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		volDown: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		expand:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "full player")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		analyze: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "analyze")),
		guest:   key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "guest mode")),
		signOut: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "sign out")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.toggle, k.seekB, k.seekF},
		{k.volUp, k.volDown, k.expand},
		{k.refresh, k.signOut, k.quit},
	}
}
