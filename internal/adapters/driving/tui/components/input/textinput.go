// Package input provides the query input of the search view.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/govlens/internal/core/domain"
)

const (
	label         = "Search: "
	minInputWidth = 20
)

// SearchInput is a single-line query box. A value of the form
// framework:reference is also a direct reference key.
type SearchInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int
}

// NewSearchInput creates a focused, empty input.
func NewSearchInput(s *styles.Styles) *SearchInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "prompt injection, owasp-llm:LLM01, ..."
	ti.CharLimit = 256
	ti.Width = 50
	ti.Focus()

	return &SearchInput{textinput: ti, styles: s, width: 50}
}

// Init starts the cursor blinking.
func (s *SearchInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update forwards messages to the text input.
func (s *SearchInput) Update(msg tea.Msg) (*SearchInput, tea.Cmd) {
	var cmd tea.Cmd
	s.textinput, cmd = s.textinput.Update(msg)
	return s, cmd
}

// View renders the label and the framed input.
func (s *SearchInput) View() string {
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center,
		s.styles.Title.Render(label),
		s.styles.InputField.Render(s.textinput.View()))
}

// Value returns the current input value.
func (s *SearchInput) Value() string {
	return s.textinput.Value()
}

// SetValue sets the input value.
func (s *SearchInput) SetValue(value string) {
	s.textinput.SetValue(value)
}

// ReferenceKey reports whether the input holds a single framework:reference
// token rather than a free-text query.
func (s *SearchInput) ReferenceKey() (domain.ReferenceKey, bool) {
	v := strings.TrimSpace(s.textinput.Value())
	if v == "" || strings.ContainsAny(v, " \t") {
		return domain.ReferenceKey{}, false
	}
	key, err := domain.ParseReferenceKey(v)
	if err != nil {
		return domain.ReferenceKey{}, false
	}
	return key, true
}

// Focus sets focus on the input.
func (s *SearchInput) Focus() tea.Cmd {
	return s.textinput.Focus()
}

// Blur removes focus from the input.
func (s *SearchInput) Blur() {
	s.textinput.Blur()
}

// Focused returns whether the input is focused.
func (s *SearchInput) Focused() bool {
	return s.textinput.Focused()
}

// SetWidth fits the input into width columns.
func (s *SearchInput) SetWidth(width int) {
	s.width = width
	s.textinput.Width = max(width-len(label)-4, minInputWidth)
}

// Width returns the current width.
func (s *SearchInput) Width() int {
	return s.width
}
