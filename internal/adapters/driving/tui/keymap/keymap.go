// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap holds the bindings shared by the views.
type KeyMap struct {
	Quit key.Binding
	Back key.Binding

	// Search submits the query typed in the input.
	Search key.Binding

	// Filter cycles the minimum severity applied to searches.
	Filter key.Binding

	Up   key.Binding
	Down key.Binding

	// Open shows the selected reference, or browses the selected framework.
	Open key.Binding

	// NewSearch returns focus to the query input.
	NewSearch key.Binding

	// Refresh reloads the current framework from its source.
	Refresh key.Binding

	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Search: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "search"),
		),
		Filter: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "severity"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		NewSearch: key.NewBinding(
			key.WithKeys("n", "/"),
			key.WithHelp("n", "new search"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "page down"),
		),
		Top: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "bottom"),
		),
	}
}

// InputHelp returns the hints shown while typing a query.
func (k *KeyMap) InputHelp() []key.Binding {
	return []key.Binding{k.Search, k.Filter, k.Back}
}

// ResultsHelp returns the hints shown while browsing hits.
func (k *KeyMap) ResultsHelp() []key.Binding {
	return []key.Binding{k.Open, k.NewSearch, k.Filter, k.Back}
}

// FullHelp groups every binding by the view that uses it.
func (k *KeyMap) FullHelp() []Group {
	return []Group{
		{Title: "Search", Bindings: []key.Binding{k.Search, k.Filter, k.NewSearch}},
		{Title: "Results", Bindings: []key.Binding{k.Up, k.Down, k.Open}},
		{Title: "Frameworks", Bindings: []key.Binding{k.Open, k.Refresh}},
		{Title: "Reference", Bindings: []key.Binding{k.PageUp, k.PageDown, k.Top, k.Bottom}},
		{Title: "Anywhere", Bindings: []key.Binding{k.Back, k.Quit}},
	}
}

// Group is a titled set of bindings for the help view.
type Group struct {
	Title    string
	Bindings []key.Binding
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}
