package reference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/govlens/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/govlens/internal/core/domain"
)

var testKey = domain.ReferenceKey{FrameworkID: "owasp-llm", ReferenceID: "LLM01"}

func testReference() *domain.Reference {
	return &domain.Reference{
		FrameworkID: "owasp-llm",
		ID:          "LLM01",
		Title:       "Prompt Injection",
		Content:     "Crafted inputs manipulate the model.",
		Category:    "input handling",
		Severity:    domain.SeverityCritical,
		Tags:        []string{"injection"},
	}
}

func testService() *MockQueryService {
	return &MockQueryService{
		GetReferenceFunc: func(_ context.Context, _, _ string) (*domain.Reference, error) {
			return testReference(), nil
		},
		ListFrameworksFunc: func(_ context.Context) ([]domain.Framework, error) {
			return []domain.Framework{{ID: "owasp-llm"}, {ID: "nist-ai-rmf"}, {ID: "eu-ai-act"}}, nil
		},
		CorrelateFunc: func(_ context.Context, key domain.ReferenceKey, target string) ([]domain.CorrelationMapping, error) {
			if target == "eu-ai-act" {
				return nil, errors.New("unavailable")
			}
			return []domain.CorrelationMapping{
				{Source: key, Target: domain.ReferenceKey{FrameworkID: target, ReferenceID: "MS-2.7"},
					Title: "Security evaluated", Strength: 0.4, Label: domain.LabelComplementary},
				{Source: key, Target: domain.ReferenceKey{FrameworkID: target, ReferenceID: "GV-1.1"},
					Title: "Legal requirements", Strength: 0.05, Label: domain.LabelNone},
				{Source: key, Target: domain.ReferenceKey{FrameworkID: target, ReferenceID: "MP-5.1"},
					Title: "Impacts identified", Strength: 0.6, Label: domain.LabelRelated},
			}, nil
		},
	}
}

func loaded(t *testing.T, svc *MockQueryService) *View {
	t.Helper()
	view := NewView(nil, svc)
	cmd := view.SetReference(testKey, messages.ViewFrameworks)
	require.NotNil(t, cmd)
	view.Update(cmd())
	return view
}

func TestNewView(t *testing.T) {
	view := NewView(nil, nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.Equal(t, messages.ViewSearch, view.Back())
	assert.Nil(t, view.Init())
}

func TestView_SetReference_LoadsReferenceAndMappings(t *testing.T) {
	view := loaded(t, testService())

	require.NotNil(t, view.Reference())
	assert.Equal(t, "Prompt Injection", view.Reference().Title)
	assert.Equal(t, testKey, view.Key())
	assert.Equal(t, messages.ViewFrameworks, view.Back())

	mappings := view.Mappings()
	require.Len(t, mappings, 2)
	assert.Equal(t, "MP-5.1", mappings[0].Target.ReferenceID)
	assert.Equal(t, "MS-2.7", mappings[1].Target.ReferenceID)
}

func TestView_SetReference_NotFound(t *testing.T) {
	view := loaded(t, &MockQueryService{})

	assert.ErrorIs(t, view.Err(), domain.ErrNotFound)
	assert.Contains(t, view.View(), "Error:")
}

func TestView_SetReference_NilService(t *testing.T) {
	view := loaded(t, nil)

	assert.Error(t, view.Err())
}

func TestView_IgnoresStaleLoad(t *testing.T) {
	view := NewView(nil, testService())
	view.SetReference(testKey, messages.ViewSearch)

	other := domain.ReferenceKey{FrameworkID: "owasp-llm", ReferenceID: "LLM02"}
	view.Update(messages.ReferenceLoaded{Key: other, Reference: &domain.Reference{Title: "stale"}})

	assert.Nil(t, view.Reference())
	assert.True(t, view.loading)
}

func TestView_Esc_ReturnsToOrigin(t *testing.T) {
	view := loaded(t, testService())

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewFrameworks}, cmd())
}

func TestView_Scroll(t *testing.T) {
	lines := make([]string, 100)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}
	svc := testService()
	svc.GetReferenceFunc = func(_ context.Context, _, _ string) (*domain.Reference, error) {
		ref := testReference()
		ref.Content = strings.Join(lines, "\n")
		return ref, nil
	}
	view := loaded(t, svc)
	view.SetDimensions(80, 24)

	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, view.ScrollOffset())

	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, view.ScrollOffset())

	view.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, view.visibleLines(), view.ScrollOffset())

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	assert.Equal(t, view.maxScrollOffset(), view.ScrollOffset())

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	assert.Equal(t, 0, view.ScrollOffset())

	assert.Contains(t, view.View(), "Line 1-")
}

func TestView_View_ShowsMetadataAndMappings(t *testing.T) {
	view := loaded(t, testService())
	view.SetDimensions(100, 40)

	out := view.View()

	assert.Contains(t, out, "Prompt Injection")
	assert.Contains(t, out, "owasp-llm:LLM01")
	assert.Contains(t, out, "[critical]")
	assert.Contains(t, out, "input handling")
	assert.Contains(t, out, "tags: injection")
	assert.Contains(t, out, "Crafted inputs manipulate the model.")
	assert.Contains(t, out, "Related references")
	assert.Contains(t, out, "nist-ai-rmf:MP-5.1")
	assert.NotContains(t, out, "GV-1.1")
}

func TestView_View_Loading(t *testing.T) {
	view := NewView(nil, testService())
	view.SetReference(testKey, messages.ViewSearch)

	assert.Contains(t, view.View(), "Loading reference...")
}

func TestStrongest(t *testing.T) {
	in := []domain.CorrelationMapping{
		{Strength: 0.3, Label: domain.LabelComplementary},
		{Strength: 0.9, Label: domain.LabelEquivalent},
		{Strength: 0.1, Label: domain.LabelNone},
		{Strength: 0.5, Label: domain.LabelRelated},
	}

	got := strongest(in, 2)

	require.Len(t, got, 2)
	assert.InDelta(t, 0.9, got[0].Strength, 0.001)
	assert.InDelta(t, 0.5, got[1].Strength, 0.001)
}
