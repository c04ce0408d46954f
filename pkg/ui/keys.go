package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Send    key.Binding
	Stop    key.Binding
	NewChat key.Binding
	Focus   key.Binding
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding
	Delete  key.Binding
	Copy    key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Send:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Stop:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "stop")),
		NewChat: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new chat")),
		Focus:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "chats")),
		Up:      key.NewBinding(key.WithKeys("up", "k")),
		Down:    key.NewBinding(key.WithKeys("down", "j")),
		Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Delete:  key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Copy:    key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy answer")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) chatHelp() []key.Binding {
	return []key.Binding{k.Send, k.Stop, k.NewChat, k.Focus, k.Copy, k.Quit}
}

func (k keyMap) sidebarHelp() []key.Binding {
	return []key.Binding{k.Open, k.Delete, k.Focus, k.Quit}
}
