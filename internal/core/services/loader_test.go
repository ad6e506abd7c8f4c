package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
)

func newTestLoader(t *testing.T, live, static *mockSource) (*FrameworkLoader, *recordingTelemetry) {
	t.Helper()
	tel := &recordingTelemetry{}
	var liveLoaders []driven.SourceLoader
	if live != nil {
		liveLoaders = append(liveLoaders, live)
	}
	layer := NewFetchLayer(testSettings().Breaker, liveLoaders, []driven.SourceLoader{static},
		WithSleep(noSleep), WithFetchTelemetry(tel))
	return NewFrameworkLoader(layer, []driven.Normaliser{lineNormaliser{}}, tel), tel
}

func TestFrameworkLoader_PartialLoad(t *testing.T) {
	static := newMockSource("static", false)
	desc := domain.FrameworkDescriptor{ID: "owasp-llm", Name: "OWASP LLM Top 10", Kind: domain.KindRisks, Source: "static"}
	for i := 1; i <= 10; i++ {
		rid := fmt.Sprintf("owasp-llm/LLM%02d.txt", i)
		desc.Resources = append(desc.Resources, rid)
		if i == 7 {
			static.put(rid, "MALFORMED\n")
			continue
		}
		static.put(rid, fmt.Sprintf("LLM%02d|Risk %d|high|content %d", i, i, i))
	}
	loader, _ := newTestLoader(t, nil, static)

	fw, refs, err := loader.Load(context.Background(), desc)
	require.NoError(t, err)

	assert.Len(t, refs, 9)
	assert.Equal(t, []string{"owasp-llm/LLM07.txt"}, fw.FailedReferences)
	assert.Len(t, fw.ReferenceIDs, 9)
	assert.Equal(t, "LLM01", fw.ReferenceIDs[0], "references keep resource order")
	assert.Equal(t, domain.OriginStatic, fw.Origin)
	for _, r := range refs {
		assert.Equal(t, "owasp-llm", r.FrameworkID)
		assert.Equal(t, "risk", r.Category)
	}
}

func TestFrameworkLoader_EntryFailuresKeepSiblings(t *testing.T) {
	static := newMockSource("static", false)
	static.put("fw/all.txt", "a|Alpha|low|one\n!broken\nb|Beta|high|two")
	loader, _ := newTestLoader(t, nil, static)

	fw, refs, err := loader.Load(context.Background(), domain.FrameworkDescriptor{
		ID: "fw", Source: "static", Resources: []string{"fw/all.txt"},
	})
	require.NoError(t, err)
	assert.Len(t, refs, 2)
	assert.Equal(t, []string{"fw/all.txt#broken"}, fw.FailedReferences)
	assert.Equal(t, "fw", fw.Name, "name defaults to the id")
	assert.Equal(t, domain.KindFramework, fw.Kind)
}

func TestFrameworkLoader_DuplicateIDs(t *testing.T) {
	static := newMockSource("static", false)
	static.put("fw/a.txt", "x|First|low|one")
	static.put("fw/b.txt", "x|Second|low|two")
	loader, _ := newTestLoader(t, nil, static)

	fw, refs, err := loader.Load(context.Background(), domain.FrameworkDescriptor{
		ID: "fw", Source: "static", Resources: []string{"fw/a.txt", "fw/b.txt"},
	})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "First", refs[0].Title)
	assert.Equal(t, []string{"fw/b.txt#x"}, fw.FailedReferences)
}

func TestFrameworkLoader_NothingLoaded(t *testing.T) {
	t.Run("all missing is not found", func(t *testing.T) {
		loader, tel := newTestLoader(t, nil, newMockSource("static", false))
		_, _, err := loader.Load(context.Background(), domain.FrameworkDescriptor{
			ID: "fw", Source: "static", Resources: []string{"fw/a.txt"},
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, 1, tel.count(driven.EventLoadFailed))
	})

	t.Run("all malformed", func(t *testing.T) {
		static := newMockSource("static", false)
		static.put("fw/a.txt", "MALFORMED")
		static.put("fw/b.pdf", "binary")
		loader, _ := newTestLoader(t, nil, static)
		_, _, err := loader.Load(context.Background(), domain.FrameworkDescriptor{
			ID: "fw", Source: "static", Resources: []string{"fw/a.txt", "fw/b.pdf"},
		})
		assert.ErrorIs(t, err, domain.ErrMalformedContent)
	})

	t.Run("live down without fallback", func(t *testing.T) {
		live := newMockSource("github", true)
		live.setErr(errUpstream)
		loader, _ := newTestLoader(t, live, newMockSource("static", false))
		_, _, err := loader.Load(context.Background(), domain.FrameworkDescriptor{
			ID: "fw", Source: "github", Resources: []string{"fw/a.txt"},
		})
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)

		var unavailable *domain.SourceUnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.False(t, unavailable.FallbackServed)
	})

	t.Run("live down with partial fallback", func(t *testing.T) {
		live := newMockSource("github", true)
		live.setErr(errUpstream)
		static := newMockSource("static", false)
		static.put("fw/a.txt", "MALFORMED")
		loader, _ := newTestLoader(t, live, static)
		_, _, err := loader.Load(context.Background(), domain.FrameworkDescriptor{
			ID: "fw", Source: "github", Resources: []string{"fw/a.txt", "fw/b.txt"},
		})

		var unavailable *domain.SourceUnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.True(t, unavailable.FallbackServed)
		assert.Contains(t, err.Error(), "partial fallback served")
	})
}

func TestFrameworkLoader_LiveOrigin(t *testing.T) {
	live := newMockSource("github", true)
	live.put("fw/a.txt", "a|Alpha|low|one")
	loader, tel := newTestLoader(t, live, newMockSource("static", false))

	fw, _, err := loader.Load(context.Background(), domain.FrameworkDescriptor{
		ID: "fw", Source: "github", Resources: []string{"fw/a.txt"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OriginLive, fw.Origin)
	assert.Positive(t, tel.count(driven.EventLoadLatency))
}

func TestFrameworkLoader_PrunesStaleSnapshots(t *testing.T) {
	live := newMockSource("github", true)
	live.put("fw/a.txt", "a|Alpha|low|one")
	snap := newMemSnapshots()
	ctx := context.Background()
	require.NoError(t, snap.Put(ctx, "github", "fw/retired.txt", []byte("old")))
	require.NoError(t, snap.Put(ctx, "github", "fw-2/x.txt", []byte("other framework")))

	layer := NewFetchLayer(testSettings().Breaker,
		[]driven.SourceLoader{live}, []driven.SourceLoader{newMockSource("static", false)},
		WithSleep(noSleep), WithSnapshotStore(snap))
	loader := NewFrameworkLoader(layer, []driven.Normaliser{lineNormaliser{}}, nil)

	_, _, err := loader.Load(ctx, domain.FrameworkDescriptor{
		ID: "fw", Source: "github", Resources: []string{"fw/a.txt"},
	})
	require.NoError(t, err)

	assert.True(t, snap.has("fw/a.txt"), "live bytes are written through")
	assert.False(t, snap.has("fw/retired.txt"))
	assert.True(t, snap.has("fw-2/x.txt"))
}

func TestFrameworkLoader_KeepsSnapshotsOnFallback(t *testing.T) {
	live := newMockSource("github", true)
	live.setErr(errUpstream)
	static := newMockSource("static", false)
	static.put("fw/a.txt", "a|Alpha|low|one")
	snap := newMemSnapshots()
	ctx := context.Background()
	require.NoError(t, snap.Put(ctx, "github", "fw/retired.txt", []byte("old")))

	layer := NewFetchLayer(testSettings().Breaker,
		[]driven.SourceLoader{live}, []driven.SourceLoader{static},
		WithSleep(noSleep), WithSnapshotStore(snap))
	loader := NewFrameworkLoader(layer, []driven.Normaliser{lineNormaliser{}}, nil)

	fw, _, err := loader.Load(ctx, domain.FrameworkDescriptor{
		ID: "fw", Source: "github", Resources: []string{"fw/a.txt"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OriginStatic, fw.Origin)
	assert.True(t, snap.has("fw/retired.txt"))
}

func TestFrameworkLoader_Cancelled(t *testing.T) {
	static := newMockSource("static", false)
	static.put("fw/a.txt", "a|Alpha|low|one")
	live := newMockSource("github", true)
	live.setErr(errUpstream)
	loader, _ := newTestLoader(t, live, static)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := loader.Load(ctx, domain.FrameworkDescriptor{
		ID: "fw", Source: "github", Resources: []string{"fw/a.txt"},
	})
	assert.ErrorIs(t, err, domain.ErrCancelled)
}

func TestDescriptorIndex(t *testing.T) {
	_, ids, err := descriptorIndex([]domain.FrameworkDescriptor{{ID: "b"}, {ID: "a"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids)

	_, _, err = descriptorIndex([]domain.FrameworkDescriptor{{ID: "a"}, {ID: "a"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = descriptorIndex([]domain.FrameworkDescriptor{{ID: ""}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
