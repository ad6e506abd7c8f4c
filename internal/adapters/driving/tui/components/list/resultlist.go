// Package list renders ranked search hits.
package list

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/govlens/internal/core/domain"
)

// barWidth is the number of cells in a relevance bar.
const barWidth = 5

// ResultList shows hits two lines each: key, title and a relevance bar
// scaled to the top hit, then the severity badge and snippet.
type ResultList struct {
	hits     []domain.SearchHit
	top      float64
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewResultList creates an empty list.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &ResultList{styles: s, width: 80, height: 10}
}

// View renders the visible window of hits around the selection.
func (r *ResultList) View() string {
	if len(r.hits) == 0 {
		return r.styles.Muted.Render("No results")
	}

	lines := make([]string, 0, len(r.hits)+2)
	lines = append(lines, r.styles.Subtitle.Render(r.header()), "")

	visible := max((r.height-4)/3, 1)
	start := 0
	if r.selected >= visible {
		start = r.selected - visible + 1
	}
	end := min(start+visible, len(r.hits))

	for i := start; i < end; i++ {
		lines = append(lines, r.renderHit(i, &r.hits[i]))
	}
	return strings.Join(lines, "\n")
}

// header summarises the hit count and how many frameworks they span.
func (r *ResultList) header() string {
	frameworks := make(map[string]struct{})
	for _, h := range r.hits {
		frameworks[h.Key.FrameworkID] = struct{}{}
	}
	noun := "frameworks"
	if len(frameworks) == 1 {
		noun = "framework"
	}
	return fmt.Sprintf("Results (%d) in %d %s", len(r.hits), len(frameworks), noun)
}

func (r *ResultList) renderHit(index int, hit *domain.SearchHit) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	titleWidth := max(r.width-barWidth-6, 10)
	title := truncate(hit.Key.String()+"  "+hit.Title, titleWidth)
	bar := relevanceBar(hit.Score, r.top)

	var titleLine string
	if index == r.selected {
		titleLine = r.styles.Selected.Render(fmt.Sprintf("%s%-*s %s", indicator, titleWidth, title, bar))
	} else {
		titleLine = r.styles.Normal.Render(fmt.Sprintf("%s%-*s ", indicator, titleWidth, title)) +
			r.styles.Muted.Render(bar)
	}

	badge := r.styles.Severity(hit.Severity)
	if badge != "" {
		badge += " "
	}
	snippet := truncate(strings.Join(strings.Fields(hit.Snippet), " "), max(r.width-16, 20))
	return titleLine + "\n    " + badge + r.styles.Muted.Render(snippet)
}

// relevanceBar renders score relative to top as filled cells; any
// positive score gets at least one cell.
func relevanceBar(score, top float64) string {
	filled := 0
	if top > 0 && score > 0 {
		filled = max(int(score/top*barWidth+0.5), 1)
	}
	filled = min(filled, barWidth)
	return strings.Repeat("▮", filled) + strings.Repeat("▯", barWidth-filled)
}

// truncate shortens s to n runes, ending in "...".
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// SetResults replaces the hits and resets the selection.
func (r *ResultList) SetResults(hits []domain.SearchHit) {
	r.hits = hits
	r.selected = 0
	r.top = 0
	for _, h := range hits {
		r.top = max(r.top, h.Score)
	}
}

// Results returns the current hits.
func (r *ResultList) Results() []domain.SearchHit {
	return r.hits
}

// Selected returns the index of the selected hit.
func (r *ResultList) Selected() int {
	return r.selected
}

// SelectedResult returns the currently selected hit, or nil if none.
func (r *ResultList) SelectedResult() *domain.SearchHit {
	if r.selected < 0 || r.selected >= len(r.hits) {
		return nil
	}
	return &r.hits[r.selected]
}

// MoveUp moves selection up.
func (r *ResultList) MoveUp() {
	r.selected = max(r.selected-1, 0)
}

// MoveDown moves selection down.
func (r *ResultList) MoveDown() {
	r.selected = max(min(r.selected+1, len(r.hits)-1), 0)
}

// SetDimensions sets the component dimensions.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// IsEmpty returns whether the list is empty.
func (r *ResultList) IsEmpty() bool {
	return len(r.hits) == 0
}
