package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	enter   key.Binding
	back    key.Binding
	filter  key.Binding
	sortKey key.Binding
	sortDir key.Binding
	refresh key.Binding
	newItem key.Binding
	signIn  key.Binding
	signOut key.Binding
	share   key.Binding
	upload  key.Binding
	next    key.Binding
	google  key.Binding
	mode    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		filter:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		sortKey: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort by")),
		sortDir: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "direction")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		newItem: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new course")),
		signIn:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "sign in")),
		signOut: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sign out")),
		share:   key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "share")),
		upload:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload")),
		next:    key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "next field")),
		google:  key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "google")),
		mode:    key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "sign up/in")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.enter, k.back, k.filter},
		{k.sortKey, k.sortDir, k.refresh},
		{k.newItem, k.signIn, k.signOut},
		{k.share, k.upload, k.quit},
	}
}
