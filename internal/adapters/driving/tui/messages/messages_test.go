package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/govlens/internal/core/domain"
)

func TestViewType_String(t *testing.T) {
	tests := []struct {
		view ViewType
		want string
	}{
		{ViewMenu, "menu"},
		{ViewSearch, "search"},
		{ViewFrameworks, "frameworks"},
		{ViewReference, "reference"},
		{ViewHelp, "help"},
		{ViewType(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.view.String())
	}
}

func TestMessages_CarryPayload(t *testing.T) {
	key := domain.ReferenceKey{FrameworkID: "eu-ai-act", ReferenceID: "Art-9"}
	err := errors.New("boom")

	selected := ReferenceSelected{Key: key, Back: ViewFrameworks}
	assert.Equal(t, "eu-ai-act:Art-9", selected.Key.String())
	assert.Equal(t, ViewFrameworks, selected.Back)

	loaded := ReferenceLoaded{Key: key, Err: err}
	assert.ErrorIs(t, loaded.Err, err)
	assert.Nil(t, loaded.Reference)

	completed := SearchCompleted{Query: "risk", Hits: []domain.SearchHit{{Key: key}}}
	assert.Len(t, completed.Hits, 1)
}
