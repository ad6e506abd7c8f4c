// Package messages holds the tea.Msg types exchanged between TUI views and
// the service commands they start.
package messages

import (
	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driving"
)

// SearchCompleted carries search hits back to the model.
type SearchCompleted struct {
	Query string
	Hits  []domain.SearchHit
	Err   error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewSearch is the search input, results and preview view.
	ViewSearch
	// ViewFrameworks lists frameworks and their references.
	ViewFrameworks
	// ViewReference shows one reference in full.
	ViewReference
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewSearch:
		return "search"
	case ViewFrameworks:
		return "frameworks"
	case ViewReference:
		return "reference"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// FrameworksLoaded carries the framework list.
type FrameworksLoaded struct {
	Frameworks []domain.Framework
	Err        error
}

// FrameworkLoaded carries one framework with its references.
type FrameworkLoaded struct {
	ID     string
	Detail *driving.FrameworkDetail
	Err    error
}

// PreviewLoaded carries the reference shown in the search preview pane.
type PreviewLoaded struct {
	Key       domain.ReferenceKey
	Reference *domain.Reference
	Err       error
}

// ReferenceSelected asks the app to open a reference in full.
// Back is the view to return to.
type ReferenceSelected struct {
	Key  domain.ReferenceKey
	Back ViewType
}

// ReferenceLoaded carries a reference and its strongest mappings.
type ReferenceLoaded struct {
	Key       domain.ReferenceKey
	Reference *domain.Reference
	Mappings  []domain.CorrelationMapping
	Err       error
}
