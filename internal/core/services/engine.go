package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
	"github.com/custodia-labs/govlens/internal/core/ports/driving"
	"github.com/custodia-labs/govlens/internal/logger"
)

// Ensure Engine implements the interface.
var _ driving.QueryService = (*Engine)(nil)

// frameworkLoader is the subset of FrameworkLoader used by Engine.
type frameworkLoader interface {
	Load(ctx context.Context, desc domain.FrameworkDescriptor) (domain.Framework, []domain.Reference, error)
}

// breakerReporter exposes breaker state.
type breakerReporter interface {
	BreakerStats() []domain.BreakerStats
}

// Engine answers keyword search and lookups over the loaded corpus and
// delegates cross-framework analysis to its Mapper.
type Engine struct {
	descriptors map[string]domain.FrameworkDescriptor
	ids         []string
	loader      frameworkLoader
	cache       *Cache
	index       *Index
	mapper      *Mapper
	breakers    breakerReporter
	cfg         domain.SearchSettings
}

// EngineDeps holds the collaborators of an Engine.
type EngineDeps struct {
	Catalog  []domain.FrameworkDescriptor
	Loader   frameworkLoader
	Cache    *Cache
	Breakers breakerReporter
	Mappings driven.MappingTable
}

// NewEngine creates a query engine over a fixed framework catalogue.
func NewEngine(deps EngineDeps, settings domain.Settings) (*Engine, error) {
	if deps.Loader == nil || deps.Cache == nil {
		return nil, fmt.Errorf("%w: engine requires a loader and a cache", domain.ErrInvalidInput)
	}
	byID, ids, err := descriptorIndex(deps.Catalog)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	e := &Engine{
		descriptors: byID,
		ids:         ids,
		loader:      deps.Loader,
		cache:       deps.Cache,
		index:       NewIndex(),
		breakers:    deps.Breakers,
		cfg:         settings.Search,
	}
	e.mapper = NewMapper(e, deps.Cache, deps.Mappings, settings.Mapper.Thresholds)
	return e, nil
}

// FrameworkIDs returns the catalogue IDs in ascending order.
func (e *Engine) FrameworkIDs() []string {
	return slices.Clone(e.ids)
}

// framework returns the index slice of a framework, loading it through the
// cache on first use or after expiry. When a reload fails transiently the
// previously published slice keeps serving.
func (e *Engine) framework(ctx context.Context, id string) (*frameworkIndex, error) {
	desc, ok := e.descriptors[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "framework", ID: id}
	}

	key := CacheKey{Class: CacheClassDocument, Source: desc.Source, Resource: id}
	ix, err := LoadAs(ctx, e.cache, key, func(ctx context.Context) (*frameworkIndex, error) {
		fw, refs, err := e.loader.Load(ctx, desc)
		if err != nil {
			return nil, err
		}
		ix := buildFrameworkIndex(fw, refs)
		e.index.install(ix)
		e.invalidateDerived()
		return ix, nil
	})
	if err != nil {
		if prev, ok := e.index.get(id); ok && !domain.IsPermanent(err) && !errors.Is(err, domain.ErrCancelled) {
			logger.Warn("framework %s: reload failed, serving loaded copy: %v", id, err)
			return prev, nil
		}
		return nil, err
	}
	return ix, nil
}

// invalidateDerived drops results computed from older framework slices.
func (e *Engine) invalidateDerived() {
	e.cache.InvalidateClass(CacheClassSearch)
	e.cache.InvalidateClass(CacheClassCorrelation)
	e.cache.InvalidateClass(CacheClassGaps)
	e.cache.InvalidateClass(CacheClassFrameworkList)
}

// frameworks loads several frameworks concurrently. With strict set, the
// first failure is returned; otherwise failures are logged and skipped.
func (e *Engine) frameworks(ctx context.Context, ids []string, strict bool) ([]*frameworkIndex, error) {
	out := make([]*frameworkIndex, len(ids))
	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			ix, err := e.framework(gctx, id)
			if err == nil {
				out[i] = ix
				return nil
			}
			if strict || errors.Is(err, domain.ErrCancelled) {
				return err
			}
			logger.Warn("framework %s unavailable: %v", id, err)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	loaded := out[:0]
	for _, ix := range out {
		if ix != nil {
			loaded = append(loaded, ix)
		}
	}
	if len(loaded) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return loaded, nil
}

// ListFrameworks returns metadata for every framework that can be loaded.
func (e *Engine) ListFrameworks(ctx context.Context) ([]domain.Framework, error) {
	key := CacheKey{Class: CacheClassFrameworkList}
	list, err := LoadAs(ctx, e.cache, key, func(ctx context.Context) ([]domain.Framework, error) {
		loaded, err := e.frameworks(ctx, e.ids, false)
		if err != nil {
			return nil, err
		}
		list := make([]domain.Framework, len(loaded))
		for i, ix := range loaded {
			list[i], _ = ix.detail()
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(list), nil
}

// GetFramework returns a framework with all of its references.
func (e *Engine) GetFramework(ctx context.Context, id string) (*driving.FrameworkDetail, error) {
	ix, ok := e.index.get(id)
	if !ok {
		var err error
		if ix, err = e.framework(ctx, id); err != nil {
			return nil, err
		}
	}
	fw, refs := ix.detail()
	return &driving.FrameworkDetail{Framework: fw, References: refs}, nil
}

// GetReference looks a reference up in the published index. The cache is
// only consulted when the framework has never been loaded.
func (e *Engine) GetReference(ctx context.Context, frameworkID, referenceID string) (*domain.Reference, error) {
	ix, ok := e.index.get(frameworkID)
	if !ok {
		var err error
		if ix, err = e.framework(ctx, frameworkID); err != nil {
			return nil, err
		}
	}
	ref, ok := ix.refs[referenceID]
	if !ok {
		key := domain.ReferenceKey{FrameworkID: frameworkID, ReferenceID: referenceID}
		return nil, &domain.NotFoundError{Kind: "reference", ID: key.String()}
	}
	out := *ref
	return &out, nil
}

// Search ranks references against a keyword query.
//
// Every matching reference is scored before truncation, so a larger limit
// only appends to the results of a smaller one.
func (e *Engine) Search(
	ctx context.Context, query string, filters domain.SearchFilters, limit int,
) ([]domain.SearchHit, error) {
	logger.Section("Search")
	logger.Debug("Query: %q, filters: %s", query, filters.CacheKey())

	tokens := uniqueSorted(Tokenize(query))
	if len(tokens) == 0 {
		logger.Debug("No usable tokens, returning no results")
		return []domain.SearchHit{}, nil
	}
	limit = e.clampLimit(limit)

	for _, id := range filters.FrameworkIDs {
		if _, ok := e.descriptors[id]; !ok {
			return nil, &domain.NotFoundError{Kind: "framework", ID: id}
		}
	}

	key := CacheKey{
		Class: CacheClassSearch,
		Query: strings.Join(tokens, " ") + "#" + filters.CacheKey(),
	}
	hits, err := LoadAs(ctx, e.cache, key, func(ctx context.Context) ([]domain.SearchHit, error) {
		return e.searchAll(ctx, tokens, filters)
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	if len(hits) > limit {
		hits = hits[:limit]
	}
	logger.Debug("Returning %d hits", len(hits))
	return slices.Clone(hits), nil
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if e.cfg.MaxLimit > 0 && limit > e.cfg.MaxLimit {
		limit = e.cfg.MaxLimit
	}
	if limit <= 0 {
		limit = 1
	}
	return limit
}

// scoredRef is an intermediate search result.
type scoredRef struct {
	ref   *domain.Reference
	score float64
}

// searchAll scores every reference in scope and returns all hits in rank order.
func (e *Engine) searchAll(
	ctx context.Context, tokens []string, filters domain.SearchFilters,
) ([]domain.SearchHit, error) {
	ids := e.ids
	strict := false
	if len(filters.FrameworkIDs) > 0 {
		ids = uniqueSorted(filters.FrameworkIDs)
		strict = true
	}
	loaded, err := e.frameworks(ctx, ids, strict)
	if err != nil {
		return nil, err
	}

	var scored []scoredRef
	for _, ix := range loaded {
		for refID, s := range ix.score(tokens) {
			ref := ix.refs[refID]
			if !filters.Match(ref) {
				continue
			}
			scored = append(scored, scoredRef{ref: ref, score: s})
		}
	}
	sortScored(scored)

	// Hits are cached; they must not alias the caller's slices.
	applied := filters.Clone()
	hits := make([]domain.SearchHit, len(scored))
	for i, sr := range scored {
		hits[i] = domain.SearchHit{
			Key:      sr.ref.Key(),
			Title:    sr.ref.Title,
			Snippet:  snippet(sr.ref, tokens, e.cfg.SnippetWidth),
			Score:    sr.score,
			Severity: sr.ref.Severity,
			Filters:  applied,
		}
	}
	return hits, nil
}

// sortScored orders by score, then severity, then reference ID, then framework ID.
func sortScored(scored []scoredRef) {
	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if ra, rb := a.ref.Severity.Rank(), b.ref.Severity.Rank(); ra != rb {
			return ra > rb
		}
		if a.ref.ID != b.ref.ID {
			return a.ref.ID < b.ref.ID
		}
		return a.ref.FrameworkID < b.ref.FrameworkID
	})
}

// runeIndex returns the index of the first occurrence of sub in s, or -1.
func runeIndex(s, sub []rune) int {
	if len(sub) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(sub) <= len(s); i++ {
		for j, r := range sub {
			if s[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}

// snippet returns a window of content around the earliest query token.
func snippet(ref *domain.Reference, tokens []string, width int) string {
	if width <= 0 {
		width = 160
	}
	text := strings.Join(strings.Fields(ref.Content), " ")
	if text == "" {
		return ref.Title
	}
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}

	// Lower-casing can change a rune's byte length, so match on runes.
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}
	pos := -1
	for _, tok := range tokens {
		if i := runeIndex(lower, []rune(tok)); i >= 0 && (pos < 0 || i < pos) {
			pos = i
		}
	}

	start := max(pos-width/4, 0)
	end := start + width
	if end > len(runes) {
		end = len(runes)
		start = max(0, end-width)
	}

	out := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		out = "..." + out
	}
	if end < len(runes) {
		out += "..."
	}
	return out
}

// Correlate maps one reference onto a target framework.
func (e *Engine) Correlate(
	ctx context.Context, key domain.ReferenceKey, targetFrameworkID string,
) ([]domain.CorrelationMapping, error) {
	return e.mapper.Correlate(ctx, key, targetFrameworkID)
}

// FindGaps lists source references lacking a related mapping in each target.
func (e *Engine) FindGaps(
	ctx context.Context, sourceFrameworkID string, targetFrameworkIDs []string, threshold domain.Severity,
) ([]domain.Gap, error) {
	return e.mapper.FindGaps(ctx, sourceFrameworkID, targetFrameworkIDs, threshold)
}

// Refresh drops cached data for one framework, or everything when id is
// empty, and reloads. A failed reload keeps the previously loaded copy.
func (e *Engine) Refresh(ctx context.Context, frameworkID string) error {
	if frameworkID == "" {
		logger.Info("Refreshing all frameworks")
		e.cache.InvalidateAll()
		return e.Warm(ctx)
	}

	desc, ok := e.descriptors[frameworkID]
	if !ok {
		return &domain.NotFoundError{Kind: "framework", ID: frameworkID}
	}
	logger.Info("Refreshing framework %s", frameworkID)
	e.cache.Invalidate(CacheKey{Class: CacheClassDocument, Source: desc.Source, Resource: frameworkID})
	e.invalidateDerived()
	_, err := e.framework(ctx, frameworkID)
	return err
}

// InvalidateResource drops the cached framework owning a resource ID.
// Used by change notifiers; the next access reloads it.
func (e *Engine) InvalidateResource(resourceID string) {
	fwID, _, _ := strings.Cut(resourceID, "/")
	desc, ok := e.descriptors[fwID]
	if !ok {
		return
	}
	logger.Debug("Invalidating %s after change to %s", fwID, resourceID)
	e.cache.Invalidate(CacheKey{Class: CacheClassDocument, Source: desc.Source, Resource: fwID})
	e.invalidateDerived()
}

// Warm loads every framework through the cache, sharing the coalescing and
// breaker paths with regular callers.
func (e *Engine) Warm(ctx context.Context) error {
	_, err := e.frameworks(ctx, e.ids, false)
	return err
}

// CacheStats returns cache counters.
func (e *Engine) CacheStats(_ context.Context) (domain.CacheStats, error) {
	return e.cache.Stats(), nil
}

// BreakerStats returns the breaker state of every live source.
func (e *Engine) BreakerStats(_ context.Context) ([]domain.BreakerStats, error) {
	if e.breakers == nil {
		return []domain.BreakerStats{}, nil
	}
	return e.breakers.BreakerStats(), nil
}
