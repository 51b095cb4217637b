package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	SelectPrevNode key.Binding
	SelectNextNode key.Binding
	Activate       key.Binding
	Parent         key.Binding
	Delete         key.Binding
	Layout         key.Binding
	Compose        key.Binding
	Branch         key.Binding
	ScrollUp       key.Binding
	ScrollDown     key.Binding

	Submit  key.Binding
	Cancel  key.Binding
	Confirm key.Binding
	Refuse  key.Binding

	Help key.Binding
	Quit key.Binding
}

var DefaultKeyMap = KeyMap{
	SelectPrevNode: key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous node")),
	SelectNextNode: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next node")),
	Activate:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "activate")),
	Parent:         key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "parent")),
	Delete:         key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete branch")),
	Layout:         key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "re-layout")),
	Compose:        key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "write")),
	Branch:         key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "branch")),
	ScrollUp:       key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
	ScrollDown:     key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),

	Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
	Cancel:  key.NewBinding(key.WithKeys("esc", "ctrl+g"), key.WithHelp("esc", "cancel")),
	Confirm: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "delete")),
	Refuse:  key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "keep")),

	Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit: key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.SelectPrevNode, k.SelectNextNode, k.Activate, k.Compose, k.Branch,
		k.Submit, k.Cancel, k.Confirm, k.Refuse,
		k.Help, k.Quit,
	}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.SelectPrevNode, k.SelectNextNode, k.Activate, k.Parent},
		{k.Compose, k.Branch, k.Delete, k.Layout},
		{k.ScrollUp, k.ScrollDown, k.Submit, k.Cancel},
		{k.Confirm, k.Refuse, k.Help, k.Quit},
	}
}
