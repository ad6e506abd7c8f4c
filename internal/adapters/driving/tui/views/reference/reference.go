// Package reference provides the reference reader view for the TUI.
package reference

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driving"
)

// mappingsPerFramework caps the related references shown per other framework.
const mappingsPerFramework = 3

// View shows one reference with its metadata and its strongest mappings
// into the other frameworks.
type View struct {
	styles *styles.Styles
	query  driving.QueryService
	ctx    context.Context

	key      domain.ReferenceKey
	back     messages.ViewType
	ref      *domain.Reference
	mappings []domain.CorrelationMapping

	lines        []string
	scrollOffset int
	width        int
	height       int
	ready        bool
	err          error
	loading      bool
}

// NewView creates a new reference view.
func NewView(s *styles.Styles, query driving.QueryService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		query:  query,
		ctx:    context.Background(),
		back:   messages.ViewSearch,
		width:  80,
		height: 24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetReference shows key and remembers which view esc returns to.
func (v *View) SetReference(key domain.ReferenceKey, back messages.ViewType) tea.Cmd {
	v.key = key
	v.back = back
	v.ref = nil
	v.mappings = nil
	v.lines = nil
	v.scrollOffset = 0
	v.err = nil
	v.loading = true
	return v.load()
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// load fetches the reference and correlates it against every other framework.
// A failed correlation only drops that framework's mappings.
func (v *View) load() tea.Cmd {
	svc, ctx, key := v.query, v.ctx, v.key
	return func() tea.Msg {
		if svc == nil {
			return messages.ReferenceLoaded{Key: key, Err: fmt.Errorf("query service not available")}
		}
		ref, err := svc.GetReference(ctx, key.FrameworkID, key.ReferenceID)
		if err != nil {
			return messages.ReferenceLoaded{Key: key, Err: err}
		}

		frameworks, err := svc.ListFrameworks(ctx)
		if err != nil {
			return messages.ReferenceLoaded{Key: key, Reference: ref}
		}
		var mappings []domain.CorrelationMapping
		for i := range frameworks {
			if frameworks[i].ID == key.FrameworkID {
				continue
			}
			found, err := svc.Correlate(ctx, key, frameworks[i].ID)
			if err != nil {
				continue
			}
			mappings = append(mappings, strongest(found, mappingsPerFramework)...)
		}
		return messages.ReferenceLoaded{Key: key, Reference: ref, Mappings: mappings}
	}
}

// strongest returns up to n mappings above LabelNone, strongest first.
func strongest(mappings []domain.CorrelationMapping, n int) []domain.CorrelationMapping {
	kept := make([]domain.CorrelationMapping, 0, n)
	for _, m := range mappings {
		if m.Label != domain.LabelNone {
			kept = append(kept, m)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Strength > kept[j].Strength })
	if len(kept) > n {
		kept = kept[:n]
	}
	return kept
}

// Update handles messages for the reference view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.ReferenceLoaded:
		if msg.Key != v.key {
			return v, nil
		}
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.ref = msg.Reference
		v.mappings = msg.Mappings
		v.layout()
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.scrollOffset > 0 {
			v.scrollOffset--
		}
	case "down", "j":
		if v.scrollOffset < v.maxScrollOffset() {
			v.scrollOffset++
		}
	case "pgup", "ctrl+u":
		v.scrollOffset = max(v.scrollOffset-v.visibleLines(), 0)
	case "pgdown", "ctrl+d":
		v.scrollOffset = min(v.scrollOffset+v.visibleLines(), v.maxScrollOffset())
	case "home", "g":
		v.scrollOffset = 0
	case "end", "G":
		v.scrollOffset = v.maxScrollOffset()
	case "esc":
		back := v.back
		return v, func() tea.Msg {
			return messages.ViewChanged{View: back}
		}
	}

	return v, nil
}

// layout renders the body into wrapped lines for scrolling.
func (v *View) layout() {
	if v.ref == nil {
		v.lines = nil
		return
	}
	width := max(v.width-4, 20)

	var body []string
	if meta := v.metadata(); meta != "" {
		body = append(body, meta)
	}
	if len(v.ref.Tags) > 0 {
		body = append(body, v.styles.Muted.Render("tags: "+strings.Join(v.ref.Tags, ", ")))
	}
	if len(v.ref.Sections) > 0 {
		body = append(body, v.styles.Muted.Render("sections: "+strings.Join(v.ref.Sections, " / ")))
	}
	body = append(body, "")

	content := strings.TrimSpace(v.ref.Content)
	if content == "" {
		body = append(body, v.styles.Muted.Render("(No content)"))
	} else {
		wrapped := lipgloss.NewStyle().Width(width).Render(content)
		body = append(body, strings.Split(wrapped, "\n")...)
	}

	if len(v.mappings) > 0 {
		body = append(body, "", v.styles.Subtitle.Render("Related references"))
		for _, m := range v.mappings {
			line := fmt.Sprintf("  %-24s %-14s %.2f  %s", m.Target.String(), m.Label, m.Strength, m.Title)
			body = append(body, truncate(line, width))
		}
	}
	v.lines = body
	v.scrollOffset = min(v.scrollOffset, v.maxScrollOffset())
}

func (v *View) metadata() string {
	parts := make([]string, 0, 3)
	if badge := v.styles.Severity(v.ref.Severity); badge != "" {
		parts = append(parts, badge)
	}
	if v.ref.Category != "" {
		parts = append(parts, v.ref.Category)
	}
	if v.ref.Status != "" {
		parts = append(parts, "("+v.ref.Status+")")
	}
	return strings.Join(parts, " ")
}

// visibleLines returns the number of lines that can be displayed.
func (v *View) visibleLines() int {
	// title, key, separator, help and padding
	return max(v.height-7, 1)
}

// maxScrollOffset returns the maximum scroll offset.
func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the reference view.
func (v *View) View() string {
	var b strings.Builder

	title := v.key.ReferenceID
	if v.ref != nil && v.ref.Title != "" {
		title = v.ref.Title
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render(v.key.String()))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(max(v.width-4, 1), 60)))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading reference..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
	default:
		visible := v.visibleLines()
		end := min(v.scrollOffset+visible, len(v.lines))
		for i := v.scrollOffset; i < end; i++ {
			b.WriteString(v.lines[i])
			b.WriteString("\n")
		}
		if len(v.lines) > visible {
			percentage := 0
			if v.maxScrollOffset() > 0 {
				percentage = v.scrollOffset * 100 / v.maxScrollOffset()
			}
			b.WriteString("\n")
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d%%] Line %d-%d of %d",
				percentage, v.scrollOffset+1, end, len(v.lines))))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom  [esc] back"))
	return b.String()
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
	v.layout()
}

// Key returns the reference being shown.
func (v *View) Key() domain.ReferenceKey {
	return v.key
}

// Reference returns the loaded reference, or nil.
func (v *View) Reference() *domain.Reference {
	return v.ref
}

// Mappings returns the related references shown under the content.
func (v *View) Mappings() []domain.CorrelationMapping {
	return v.mappings
}

// Back returns the view esc returns to.
func (v *View) Back() messages.ViewType {
	return v.back
}

// ScrollOffset returns the first visible line.
func (v *View) ScrollOffset() int {
	return v.scrollOffset
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
