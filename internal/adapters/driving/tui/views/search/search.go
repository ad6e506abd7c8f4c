// Package search provides the main search view for the TUI: a query input,
// the ranked hits and a preview pane for the selected reference.
package search

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driving"
)

// minPreviewWidth is the narrowest terminal that shows the preview pane.
const minPreviewWidth = 90

// View represents the search view with input, results list, preview pane
// and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.SearchInput
	list      *list.ResultList
	statusbar *status.Bar

	query driving.QueryService
	ctx   context.Context

	// previews caches loaded references by key.
	previews   map[domain.ReferenceKey]*domain.Reference
	previewErr error

	// minSeverity filters searches; empty means no filter.
	minSeverity domain.Severity
	lastQuery   string

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = input mode (typing), false = results mode (navigating)
}

// severityCycle is the order the filter key steps through.
var severityCycle = map[domain.Severity]domain.Severity{
	"":                      domain.SeverityMedium,
	domain.SeverityMedium:   domain.SeverityHigh,
	domain.SeverityHigh:     domain.SeverityCritical,
	domain.SeverityCritical: "",
}

// NewView creates a new search view.
func NewView(s *styles.Styles, km *keymap.KeyMap, query driving.QueryService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewSearchInput(s),
		list:       list.NewResultList(s),
		statusbar:  status.NewBar(s, km),
		query:      query,
		ctx:        context.Background(),
		previews:   make(map[domain.ReferenceKey]*domain.Reference),
		width:      80,
		height:     24,
		focusInput: true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchCompleted:
		return v, v.handleSearchCompleted(msg)

	case messages.PreviewLoaded:
		if msg.Err != nil {
			v.previewErr = msg.Err
			return v, nil
		}
		v.previewErr = nil
		v.previews[msg.Key] = msg.Reference
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.SetError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	if v.focusInput {
		v.input, cmd = v.input.Update(msg)
	}
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if keymap.Matches(msg.String(), v.keymap.Filter) {
		v.minSeverity = severityCycle[v.minSeverity]
		v.statusbar.SetFilter(v.minSeverity)
		if v.lastQuery == "" {
			return v, nil
		}
		v.statusbar.Searching()
		return v, v.performSearch(v.lastQuery)
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			if key, ok := v.input.ReferenceKey(); ok {
				return v, func() tea.Msg {
					return messages.ReferenceSelected{Key: key, Back: messages.ViewSearch}
				}
			}
			query := strings.TrimSpace(v.input.Value())
			if query == "" {
				return v, nil
			}
			v.statusbar.Searching()
			return v, v.performSearch(query)
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch {
	case keymap.Matches(msg.String(), v.keymap.Open):
		hit := v.list.SelectedResult()
		if hit == nil {
			return v, nil
		}
		key := hit.Key
		return v, func() tea.Msg {
			return messages.ReferenceSelected{Key: key, Back: messages.ViewSearch}
		}
	case keymap.Matches(msg.String(), v.keymap.Up):
		v.list.MoveUp()
		return v, v.loadPreview()
	case keymap.Matches(msg.String(), v.keymap.Down):
		v.list.MoveDown()
		return v, v.loadPreview()
	case keymap.Matches(msg.String(), v.keymap.NewSearch):
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	}

	return v, nil
}

// performSearch runs the query with the active severity filter and the
// configured default limit.
func (v *View) performSearch(query string) tea.Cmd {
	v.lastQuery = query
	svc, ctx, filters := v.query, v.ctx, v.filters()
	return func() tea.Msg {
		if svc == nil {
			return messages.ErrorOccurred{Err: ErrNoQueryService}
		}
		hits, err := svc.Search(ctx, query, filters, 0)
		return messages.SearchCompleted{Query: query, Hits: hits, Err: err}
	}
}

func (v *View) filters() domain.SearchFilters {
	if v.minSeverity == "" {
		return domain.SearchFilters{}
	}
	var sevs []domain.Severity
	for _, sev := range domain.AllSeverities() {
		if sev.AtLeast(v.minSeverity) {
			sevs = append(sevs, sev)
		}
	}
	return domain.SearchFilters{Severities: sevs}
}

// loadPreview fetches the selected reference unless it is cached.
func (v *View) loadPreview() tea.Cmd {
	hit := v.list.SelectedResult()
	if hit == nil || v.query == nil {
		return nil
	}
	if _, ok := v.previews[hit.Key]; ok {
		return nil
	}

	svc, ctx, key := v.query, v.ctx, hit.Key
	return func() tea.Msg {
		ref, err := svc.GetReference(ctx, key.FrameworkID, key.ReferenceID)
		return messages.PreviewLoaded{Key: key, Reference: ref, Err: err}
	}
}

// handleSearchCompleted processes search results.
func (v *View) handleSearchCompleted(msg messages.SearchCompleted) tea.Cmd {
	if msg.Err != nil {
		v.err = msg.Err
		v.statusbar.SetError(msg.Err)
		return nil
	}

	v.err = nil
	v.list.SetResults(msg.Hits)
	v.statusbar.SetHits(len(msg.Hits))

	v.focusInput = false
	v.input.Blur()
	return v.loadPreview()
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 8)
	sections = append(sections, v.styles.Title.Render("govlens"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	body := v.list.View()
	if v.showPreview() && !v.list.IsEmpty() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, v.styles.Pane.Render(v.renderPreview()))
	}
	sections = append(sections, body, "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) showPreview() bool {
	return v.width >= minPreviewWidth
}

// previewWidth is the content width of the preview pane.
func (v *View) previewWidth() int {
	return v.width * 2 / 5
}

// renderPreview renders the selected reference.
func (v *View) renderPreview() string {
	hit := v.list.SelectedResult()
	if hit == nil {
		return ""
	}
	width := v.previewWidth() - 2
	if v.previewErr != nil {
		return v.styles.Error.Render(v.previewErr.Error())
	}
	ref, ok := v.previews[hit.Key]
	if !ok {
		return v.styles.Muted.Render("Loading...")
	}

	lines := []string{v.styles.Subtitle.Render(ref.Title), v.styles.Muted.Render(hit.Key.String())}
	meta := v.styles.Severity(ref.Severity)
	if ref.Category != "" {
		meta += " " + ref.Category
	}
	if ref.Status != "" {
		meta += " (" + ref.Status + ")"
	}
	if meta = strings.TrimSpace(meta); meta != "" {
		lines = append(lines, meta)
	}
	if len(ref.Tags) > 0 {
		lines = append(lines, v.styles.Muted.Render("tags: "+strings.Join(ref.Tags, ", ")))
	}
	lines = append(lines, "")

	budget := max(v.height-16, 3)
	body := lipgloss.NewStyle().Width(width).Render(ref.Content)
	bodyLines := strings.Split(body, "\n")
	if len(bodyLines) > budget {
		bodyLines = append(bodyLines[:budget], v.styles.Muted.Render(fmt.Sprintf("... [enter] read all %d lines", len(bodyLines))))
	}
	lines = append(lines, bodyLines...)
	return strings.Join(lines, "\n")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	listWidth := width
	if v.showPreview() {
		listWidth = width - v.previewWidth() - 2
	}
	v.list.SetDimensions(listWidth, height-10)
	v.statusbar.SetWidth(width)
}

// Width returns the current width.
func (v *View) Width() int {
	return v.width
}

// Height returns the current height.
func (v *View) Height() int {
	return v.height
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current search query.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the search query.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Results returns the current hits.
func (v *View) Results() []domain.SearchHit {
	return v.list.Results()
}

// SelectedIndex returns the index of the selected hit.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// SelectedResult returns the currently selected hit.
func (v *View) SelectedResult() *domain.SearchHit {
	return v.list.SelectedResult()
}

// Preview returns the cached reference for key, if loaded.
func (v *View) Preview(key domain.ReferenceKey) *domain.Reference {
	return v.previews[key]
}

// MinSeverity returns the active severity filter.
func (v *View) MinSeverity() domain.Severity {
	return v.minSeverity
}

// Status returns the status bar.
func (v *View) Status() *status.Bar {
	return v.statusbar
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Reset resets the view to initial input mode.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetResults(nil)
	v.err = nil
	v.previewErr = nil
	v.lastQuery = ""
	clear(v.previews)
	v.statusbar.Clear()
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}
