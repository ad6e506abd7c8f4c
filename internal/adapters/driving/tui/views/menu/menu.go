// Package menu provides the start screen of the TUI.
package menu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/styles"
)

// Item is one menu entry. Selecting it switches to View, or quits when Quit is set.
type Item struct {
	Label       string
	Description string
	View        messages.ViewType
	Quit        bool
}

// View is the start menu. Items are selected with j/k and enter, or
// directly by their number.
type View struct {
	styles   *styles.Styles
	items    []Item
	selected int
	width    int
	height   int
	ready    bool
}

// NewView creates the menu.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &View{
		styles: s,
		items: []Item{
			{Label: "Search", Description: "ranked search across every framework", View: messages.ViewSearch},
			{Label: "Frameworks", Description: "browse frameworks reference by reference", View: messages.ViewFrameworks},
			{Label: "Help", Description: "key bindings", View: messages.ViewHelp},
			{Label: "Quit", Quit: true},
		},
		width:  80,
		height: 24,
	}
}

// Init implements tea.Model.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles navigation and selection.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		switch s := msg.String(); s {
		case "up", "k":
			v.selected = max(v.selected-1, 0)
		case "down", "j":
			v.selected = min(v.selected+1, len(v.items)-1)
		case "enter":
			return v, v.choose(v.selected)
		case "q":
			return v, tea.Quit
		default:
			if len(s) == 1 && s[0] >= '1' && int(s[0]-'1') < len(v.items) {
				v.selected = int(s[0] - '1')
				return v, v.choose(v.selected)
			}
		}
	}
	return v, nil
}

func (v *View) choose(i int) tea.Cmd {
	item := v.items[i]
	if item.Quit {
		return tea.Quit
	}
	return func() tea.Msg {
		return messages.ViewChanged{View: item.View}
	}
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("govlens"))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Muted.Render("AI governance frameworks, searchable and cross-referenced"))
	b.WriteString("\n\n")

	for i, item := range v.items {
		entry := fmt.Sprintf("%d %s", i+1, item.Label)
		if i == v.selected {
			b.WriteString("> " + v.styles.Selected.Render(entry))
		} else {
			b.WriteString("  " + v.styles.Normal.Render(entry))
		}
		if item.Description != "" {
			b.WriteString("  " + v.styles.Muted.Render(item.Description))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] Navigate  [Enter/1-4] Select  [q] Quit"))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Items returns the menu items.
func (v *View) Items() []Item {
	return v.items
}

// Selected returns the currently selected index.
func (v *View) Selected() int {
	return v.selected
}
