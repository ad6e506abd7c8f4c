// Package styles provides the colour palette and lipgloss styles of the TUI,
// including the severity and origin badges.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/govlens/internal/core/domain"
)

// Theme is the colour palette.
type Theme struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	Border     lipgloss.Color
	Bar        lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:    lipgloss.Color("#7C3AED"),
		Secondary:  lipgloss.Color("#06B6D4"),
		Foreground: lipgloss.Color("#CDD6F4"),
		Muted:      lipgloss.Color("#6C7086"),
		Success:    lipgloss.Color("#A6E3A1"),
		Warning:    lipgloss.Color("#F9E2AF"),
		Error:      lipgloss.Color("#F38BA8"),
		Border:     lipgloss.Color("#45475A"),
		Bar:        lipgloss.Color("#181825"),
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Help     lipgloss.Style

	// InputField frames the search query.
	InputField lipgloss.Style

	StatusBar lipgloss.Style

	// Pane separates the search preview from the hit list.
	Pane lipgloss.Style

	severity map[domain.Severity]lipgloss.Style
	origin   map[domain.OriginKind]lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title:    lipgloss.NewStyle().Bold(true).Foreground(theme.Primary),
		Subtitle: lipgloss.NewStyle().Bold(true).Foreground(theme.Secondary),
		Normal:   lipgloss.NewStyle().Foreground(theme.Foreground),
		Muted:    lipgloss.NewStyle().Foreground(theme.Muted),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Foreground).
			Background(theme.Primary),
		Error:   lipgloss.NewStyle().Foreground(theme.Error),
		Warning: lipgloss.NewStyle().Foreground(theme.Warning),
		Help:    lipgloss.NewStyle().Foreground(theme.Muted),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Background(theme.Bar).
			Padding(0, 1),

		Pane: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(theme.Border).
			PaddingLeft(1),

		severity: map[domain.Severity]lipgloss.Style{
			domain.SeverityCritical: lipgloss.NewStyle().Bold(true).Foreground(theme.Error),
			domain.SeverityHigh:     lipgloss.NewStyle().Foreground(theme.Error),
			domain.SeverityMedium:   lipgloss.NewStyle().Foreground(theme.Warning),
			domain.SeverityLow:      lipgloss.NewStyle().Foreground(theme.Success),
		},
		origin: map[domain.OriginKind]lipgloss.Style{
			domain.OriginLive:   lipgloss.NewStyle().Foreground(theme.Success),
			domain.OriginStatic: lipgloss.NewStyle().Foreground(theme.Warning),
		},
	}
}

// Severity renders a severity badge such as "[high]". An empty severity
// renders as an empty string.
func (s *Styles) Severity(sev domain.Severity) string {
	if sev == "" {
		return ""
	}
	style, ok := s.severity[sev]
	if !ok {
		style = s.Muted
	}
	return style.Render("[" + string(sev) + "]")
}

// Origin renders where a framework was served from. Static content is
// highlighted because it may lag the upstream.
func (s *Styles) Origin(o domain.OriginKind) string {
	style, ok := s.origin[o]
	if !ok {
		style = s.Muted
	}
	return style.Render(string(o))
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}
