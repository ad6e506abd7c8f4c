// Package frameworks provides the framework browser view for the TUI.
// It lists frameworks and, after selecting one, its references.
package frameworks

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driving"
)

// View is the framework browser.
type View struct {
	styles *styles.Styles
	query  driving.QueryService
	ctx    context.Context

	frameworks []domain.Framework
	selected   int

	// detail is set while browsing one framework's references.
	detail      *driving.FrameworkDetail
	selectedRef int

	width   int
	height  int
	ready   bool
	err     error
	loading bool
}

// NewView creates a new frameworks view.
func NewView(s *styles.Styles, query driving.QueryService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		query:  query,
		ctx:    context.Background(),
		width:  80,
		height: 24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the framework list.
func (v *View) Init() tea.Cmd {
	v.detail = nil
	v.loading = true
	return v.loadFrameworks()
}

func (v *View) loadFrameworks() tea.Cmd {
	svc, ctx := v.query, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.FrameworksLoaded{Err: fmt.Errorf("query service not available")}
		}
		frameworks, err := svc.ListFrameworks(ctx)
		return messages.FrameworksLoaded{Frameworks: frameworks, Err: err}
	}
}

func (v *View) loadFramework(id string) tea.Cmd {
	svc, ctx := v.query, v.ctx
	return func() tea.Msg {
		detail, err := svc.GetFramework(ctx, id)
		return messages.FrameworkLoaded{ID: id, Detail: detail, Err: err}
	}
}

// refresh reloads a framework from its source, then reopens it.
func (v *View) refresh(id string) tea.Cmd {
	svc, ctx := v.query, v.ctx
	return func() tea.Msg {
		if err := svc.Refresh(ctx, id); err != nil {
			return messages.FrameworkLoaded{ID: id, Err: err}
		}
		detail, err := svc.GetFramework(ctx, id)
		return messages.FrameworkLoaded{ID: id, Detail: detail, Err: err}
	}
}

// Update handles messages for the frameworks view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.FrameworksLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.frameworks = msg.Frameworks
		v.selected = min(v.selected, max(len(v.frameworks)-1, 0))
		v.err = nil
		return v, nil

	case messages.FrameworkLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		if v.detail == nil || v.detail.Framework.ID != msg.ID {
			v.selectedRef = 0
		}
		v.detail = msg.Detail
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.detail != nil {
		return v.handleReferenceKey(msg)
	}

	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < len(v.frameworks)-1 {
			v.selected++
		}
	case "enter":
		if v.selected < len(v.frameworks) && v.query != nil {
			v.loading = true
			return v, v.loadFramework(v.frameworks[v.selected].ID)
		}
	case "r":
		v.loading = true
		return v, v.loadFrameworks()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	return v, nil
}

func (v *View) handleReferenceKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	refs := v.detail.References
	switch msg.String() {
	case "up", "k":
		if v.selectedRef > 0 {
			v.selectedRef--
		}
	case "down", "j":
		if v.selectedRef < len(refs)-1 {
			v.selectedRef++
		}
	case "enter":
		if v.selectedRef < len(refs) {
			key := refs[v.selectedRef].Key()
			return v, func() tea.Msg {
				return messages.ReferenceSelected{Key: key, Back: messages.ViewFrameworks}
			}
		}
	case "r":
		v.loading = true
		return v, v.refresh(v.detail.Framework.ID)
	case "esc":
		v.detail = nil
		v.err = nil
		return v, nil
	}
	return v, nil
}

// View renders the frameworks view.
func (v *View) View() string {
	var b strings.Builder

	title := "Frameworks"
	if v.detail != nil {
		title = frameworkName(&v.detail.Framework)
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
	case v.detail != nil:
		b.WriteString(v.renderReferences())
	case len(v.frameworks) == 0:
		b.WriteString(v.styles.Muted.Render("No frameworks available."))
	default:
		for i := range v.frameworks {
			b.WriteString(v.renderFramework(i, &v.frameworks[i]))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())
	return b.String()
}

// renderFramework renders a single framework line.
func (v *View) renderFramework(index int, fw *domain.Framework) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	kind := fmt.Sprintf("[%s]", fw.Kind)
	name := truncate(frameworkName(fw), max(v.width-36, 10))
	count := fmt.Sprintf("%d refs", len(fw.ReferenceIDs))
	origin := string(fw.Origin)

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("%s%-14s %s  %s  %s", indicator, kind, name, count, origin))
	}
	line := v.styles.Normal.Render(indicator) +
		v.styles.Subtitle.Render(fmt.Sprintf("%-14s ", kind)) +
		v.styles.Normal.Render(name) + "  " +
		v.styles.Muted.Render(count) + "  " + v.styles.Origin(fw.Origin)
	if len(fw.FailedReferences) > 0 {
		line += "  " + v.styles.Warning.Render(fmt.Sprintf("%d failed", len(fw.FailedReferences)))
	}
	return line
}

// renderReferences renders the reference list of the open framework.
func (v *View) renderReferences() string {
	refs := v.detail.References
	if len(refs) == 0 {
		return v.styles.Muted.Render("No references loaded.")
	}

	visible := max(v.height-8, 1)
	start := 0
	if v.selectedRef >= visible {
		start = v.selectedRef - visible + 1
	}
	end := min(start+visible, len(refs))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		ref := &refs[i]
		indicator := "  "
		if i == v.selectedRef {
			indicator = "> "
		}
		text := fmt.Sprintf("%s%-12s %s", indicator, ref.ID, truncate(ref.Title, max(v.width-30, 10)))
		if i == v.selectedRef {
			lines = append(lines, v.styles.Selected.Render(text)+" "+v.styles.Severity(ref.Severity))
		} else {
			lines = append(lines, v.styles.Normal.Render(text)+" "+v.styles.Severity(ref.Severity))
		}
	}
	return strings.Join(lines, "\n")
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	if v.detail != nil {
		return v.styles.Help.Render("[enter] open  [r] refresh  [esc] frameworks")
	}
	return v.styles.Help.Render("[enter] browse  [r] reload  [esc] back")
}

func frameworkName(fw *domain.Framework) string {
	name := fw.Name
	if name == "" {
		name = fw.ID
	}
	if fw.Version != "" {
		name += " " + fw.Version
	}
	return name
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Frameworks returns the loaded frameworks.
func (v *View) Frameworks() []domain.Framework {
	return v.frameworks
}

// Detail returns the open framework, or nil when listing frameworks.
func (v *View) Detail() *driving.FrameworkDetail {
	return v.detail
}

// SelectedIndex returns the currently selected framework index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
