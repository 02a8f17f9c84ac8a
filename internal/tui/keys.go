package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Open    key.Binding
	Toggle  key.Binding
	New     key.Binding
	Convert key.Binding
	Archive key.Binding
	Search  key.Binding
	Close   key.Binding
	Next    key.Binding
	Reload  key.Binding
	Quit    key.Binding
	Submit  key.Binding
	Cancel  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Open:    key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("^o", "open")),
		Toggle:  key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("^t", "board/markdown")),
		New:     key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("^n", "new board")),
		Convert: key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("^e", "convert")),
		Archive: key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("^a", "archive done")),
		Search:  key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("^f", "search")),
		Close:   key.NewBinding(key.WithKeys("ctrl+w"), key.WithHelp("^w", "close")),
		Next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
		Reload:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("^r", "reload")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Submit:  key.NewBinding(key.WithKeys("enter")),
		Cancel:  key.NewBinding(key.WithKeys("esc")),
	}
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Open, k.Toggle, k.New, k.Convert, k.Archive, k.Search, k.Close, k.Next, k.Reload, k.Quit}
}
