// Package status renders the search status line: hit count, active
// severity filter, errors and key hints.
package status

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/govlens/internal/core/domain"
)

// State is what the search view is doing.
type State string

const (
	StateInput     State = "input"
	StateSearching State = "searching"
	StateResults   State = "results"
	StateError     State = "error"
)

// Bar is the status line under the search results.
type Bar struct {
	styles *styles.Styles
	keymap *keymap.KeyMap

	state   State
	message string
	hits    int
	filter  domain.Severity
	width   int
}

// NewBar creates a status bar in the input state.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, state: StateInput, width: 80}
}

// View renders the bar at its width.
func (s *Bar) View() string {
	left := s.renderLeft()
	if f := s.renderFilter(); f != "" {
		left += "  " + f
	}
	right := s.renderRight()

	padding := max(s.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return s.styles.StatusBar.Width(s.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (s *Bar) renderLeft() string {
	switch s.state {
	case StateSearching:
		return s.styles.Muted.Render("Searching...")
	case StateError:
		return s.styles.Error.Render("Error: " + s.message)
	case StateResults:
		switch s.hits {
		case 0:
			return s.styles.Muted.Render("No matches")
		case 1:
			return s.styles.Normal.Render("1 hit")
		default:
			return s.styles.Normal.Render(fmt.Sprintf("%d hits", s.hits))
		}
	}
	return s.styles.Muted.Render("Type a query")
}

func (s *Bar) renderFilter() string {
	if s.filter == "" {
		return ""
	}
	label := string(s.filter) + "+"
	if s.filter == domain.SeverityCritical {
		label = string(s.filter)
	}
	return s.styles.Warning.Render("severity " + label)
}

func (s *Bar) renderRight() string {
	var bindings []key.Binding
	if s.state == StateResults && s.hits > 0 {
		bindings = s.keymap.ResultsHelp()
	} else {
		bindings = s.keymap.InputHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// Searching marks a query in flight.
func (s *Bar) Searching() {
	s.state = StateSearching
	s.message = ""
}

// SetHits shows the result count of a completed search.
func (s *Bar) SetHits(n int) {
	s.state = StateResults
	s.hits = n
	s.message = ""
}

// SetError shows err. A rate-limited search shows when to retry.
func (s *Bar) SetError(err error) {
	s.state = StateError
	var rl *domain.RateLimitedError
	if errors.As(err, &rl) {
		s.message = fmt.Sprintf("rate limited, retry in %ds", rl.RetryAfterSeconds)
		return
	}
	s.message = err.Error()
}

// SetFilter shows the minimum severity applied to searches; empty hides it.
func (s *Bar) SetFilter(min domain.Severity) {
	s.filter = min
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Clear returns to the input state, keeping the filter.
func (s *Bar) Clear() {
	s.state = StateInput
	s.message = ""
	s.hits = 0
}

// State returns the current state.
func (s *Bar) State() State { return s.state }

// Message returns the error message, if any.
func (s *Bar) Message() string { return s.message }

// Hits returns the hit count of the last search.
func (s *Bar) Hits() int { return s.hits }

// Width returns the current width.
func (s *Bar) Width() int { return s.width }
