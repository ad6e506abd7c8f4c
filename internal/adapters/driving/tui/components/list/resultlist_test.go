package list

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/govlens/internal/core/domain"
)

func testHits(n int) []domain.SearchHit {
	hits := make([]domain.SearchHit, n)
	for i := range hits {
		hits[i] = domain.SearchHit{
			Key:      domain.ReferenceKey{FrameworkID: "owasp-llm", ReferenceID: fmt.Sprintf("LLM%02d", i+1)},
			Title:    fmt.Sprintf("Risk %d", i+1),
			Snippet:  "first line\n  second   line",
			Score:    float64(n - i),
			Severity: domain.SeverityHigh,
		}
	}
	return hits
}

func TestResultList_SetResultsResetsSelection(t *testing.T) {
	list := NewResultList(nil)
	assert.True(t, list.IsEmpty())
	assert.Nil(t, list.SelectedResult())

	list.SetResults(testHits(3))
	list.MoveDown()
	list.MoveDown()
	assert.Equal(t, 2, list.Selected())

	list.SetResults(testHits(2))
	assert.Equal(t, 0, list.Selected())
	assert.Len(t, list.Results(), 2)
}

func TestResultList_Navigation(t *testing.T) {
	list := NewResultList(nil)
	list.MoveDown()
	assert.Equal(t, 0, list.Selected())

	list.SetResults(testHits(3))
	list.MoveUp()
	assert.Equal(t, 0, list.Selected())

	for range 5 {
		list.MoveDown()
	}
	require.NotNil(t, list.SelectedResult())
	assert.Equal(t, "LLM03", list.SelectedResult().Key.ReferenceID)
}

func TestResultList_View(t *testing.T) {
	list := NewResultList(nil)
	assert.Contains(t, list.View(), "No results")

	list.SetResults(testHits(2))
	out := list.View()

	assert.Contains(t, out, "Results (2) in 1 framework")
	assert.Contains(t, out, "owasp-llm:LLM01  Risk 1")
	assert.Contains(t, out, "[high]")
	assert.Contains(t, out, "first line second line")
	assert.Contains(t, out, "▮▮▮▮▮")
}

func TestResultList_View_CountsFrameworks(t *testing.T) {
	hits := testHits(2)
	hits[1].Key.FrameworkID = "nist-ai-rmf"
	list := NewResultList(nil)
	list.SetResults(hits)

	assert.Contains(t, list.View(), "Results (2) in 2 frameworks")
}

func TestResultList_View_ScrollsToSelection(t *testing.T) {
	list := NewResultList(nil)
	list.SetDimensions(80, 10)
	list.SetResults(testHits(6))
	for range 5 {
		list.MoveDown()
	}

	out := list.View()

	assert.Contains(t, out, "LLM06")
	assert.NotContains(t, out, "LLM01")
}

func TestRelevanceBar(t *testing.T) {
	tests := []struct {
		score, top float64
		want       string
	}{
		{4, 4, "▮▮▮▮▮"},
		{2, 4, "▮▮▮▯▯"},
		{0.01, 4, "▮▯▯▯▯"},
		{0, 4, "▯▯▯▯▯"},
		{1, 0, "▯▯▯▯▯"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, relevanceBar(tt.score, tt.top), "%v/%v", tt.score, tt.top)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefghijkl", 8, "abcde..."},
		{"abcdef", 3, "abc"},
		{"ééééééé", 5, "éé..."},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.in, tt.n))
	}
}
