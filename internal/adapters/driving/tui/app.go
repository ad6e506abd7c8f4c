package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/views/frameworks"
	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/views/reference"
	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/govlens/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	menuView       *menu.View
	searchView     *search.View
	frameworksView *frameworks.View
	referenceView  *reference.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s, km := styles.DefaultStyles(), keymap.DefaultKeyMap()
	return &App{
		ports:          ports,
		ctx:            context.Background(),
		styles:         s,
		keymap:         km,
		menuView:       menu.NewView(s),
		searchView:     search.NewView(s, km, ports.Query),
		frameworksView: frameworks.NewView(s, ports.Query),
		referenceView:  reference.NewView(s, ports.Query),
		currentView:    messages.ViewMenu,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.searchView.WithContext(ctx)
	a.frameworksView.WithContext(ctx)
	a.referenceView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("govlens"),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if msg.Type == tea.KeyEsc {
				a.currentView = messages.ViewMenu
			}
			return a, nil
		}
		return a, a.updateCurrent(msg)

	case messages.ViewChanged:
		prev := a.currentView
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewSearch:
			// Returning from a reference keeps the results.
			if prev == messages.ViewReference {
				return a, nil
			}
			a.searchView.Reset()
			return a, a.searchView.Init()
		case messages.ViewFrameworks:
			// Returning from a reference keeps the open framework.
			if a.frameworksView.Detail() == nil {
				return a, a.frameworksView.Init()
			}
		case messages.ViewMenu, messages.ViewReference, messages.ViewHelp:
		}
		return a, nil

	case messages.ReferenceSelected:
		a.currentView = messages.ViewReference
		return a, a.referenceView.SetReference(msg.Key, msg.Back)

	case messages.SearchCompleted, messages.PreviewLoaded:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = a.searchView.Err()
		return a, cmd

	case messages.FrameworksLoaded, messages.FrameworkLoaded:
		a.frameworksView, cmd = a.frameworksView.Update(msg)
		a.err = a.frameworksView.Err()
		return a, cmd

	case messages.ReferenceLoaded:
		a.referenceView, cmd = a.referenceView.Update(msg)
		a.err = a.referenceView.Err()
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, a.updateCurrent(msg)

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.updateCurrent(msg)
}

// updateCurrent forwards msg to the active view.
func (a *App) updateCurrent(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
	case messages.ViewFrameworks:
		a.frameworksView, cmd = a.frameworksView.Update(msg)
	case messages.ViewReference:
		a.referenceView, cmd = a.referenceView.Update(msg)
	case messages.ViewHelp:
	}
	return cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewSearch:
		return a.searchView.View()
	case messages.ViewFrameworks:
		return a.frameworksView.View()
	case messages.ViewReference:
		return a.referenceView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n")
	for _, g := range a.keymap.FullHelp() {
		b.WriteString("\n" + a.styles.Subtitle.Render(g.Title) + "\n")
		for _, k := range g.Bindings {
			h := k.Help()
			fmt.Fprintf(&b, "  %-8s %s\n", h.Key, h.Desc)
		}
	}
	b.WriteString("\n" + a.styles.Help.Render("[esc] back to menu"))
	return b.String()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Query returns the current search query.
func (a *App) Query() string {
	return a.searchView.Query()
}

// Results returns the current search hits.
func (a *App) Results() []domain.SearchHit {
	return a.searchView.Results()
}

// SelectedIndex returns the currently selected result index.
func (a *App) SelectedIndex() int {
	return a.searchView.SelectedIndex()
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on the app and every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.searchView.SetDimensions(width, height)
	a.frameworksView.SetDimensions(width, height)
	a.referenceView.SetDimensions(width, height)
}
