package services

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
	"github.com/custodia-labs/govlens/internal/logger"
)

// frameworkResolver loads published framework slices.
type frameworkResolver interface {
	framework(ctx context.Context, id string) (*frameworkIndex, error)
}

// noMappings is used when no curated table is configured.
type noMappings struct{}

func (noMappings) Lookup(domain.ReferenceKey, domain.ReferenceKey) (float64, bool) { return 0, false }

// Mapper derives correlations between References of different frameworks
// from term overlap, boosted by curated mapping tables.
//
// Strength is directional: the curated table may hold an entry from A to B
// without the reverse, and results are never symmetrised.
type Mapper struct {
	frameworks frameworkResolver
	cache      *Cache
	curated    driven.MappingTable
	thresholds domain.Thresholds
}

// NewMapper creates a mapper.
func NewMapper(
	frameworks frameworkResolver, cache *Cache, curated driven.MappingTable, thresholds domain.Thresholds,
) *Mapper {
	if curated == nil {
		curated = noMappings{}
	}
	if thresholds == (domain.Thresholds{}) {
		thresholds = domain.DefaultThresholds()
	}
	return &Mapper{frameworks: frameworks, cache: cache, curated: curated, thresholds: thresholds}
}

// strength returns the mapping strength from src to dst and its basis.
func (m *Mapper) strength(
	srcKey domain.ReferenceKey, srcTokens map[string]struct{},
	dstKey domain.ReferenceKey, dstTokens map[string]struct{},
) (float64, domain.MappingBasis) {
	s := jaccard(srcTokens, dstTokens)
	if c, ok := m.curated.Lookup(srcKey, dstKey); ok && c >= s {
		return c, domain.BasisCurated
	}
	return s, domain.BasisTermOverlap
}

// jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both are empty.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Correlate maps one reference onto every reference of a target framework
// whose strength reaches the complementary threshold.
func (m *Mapper) Correlate(
	ctx context.Context, key domain.ReferenceKey, targetFrameworkID string,
) ([]domain.CorrelationMapping, error) {
	logger.Section("Correlate")
	logger.Debug("Source: %s, target: %s", key, targetFrameworkID)

	if key.FrameworkID == "" || key.ReferenceID == "" || targetFrameworkID == "" {
		return nil, fmt.Errorf("%w: reference key and target framework are required", domain.ErrInvalidInput)
	}
	if key.FrameworkID == targetFrameworkID {
		return nil, fmt.Errorf("%w: cannot correlate %s with its own framework", domain.ErrInvalidInput, key)
	}

	ck := CacheKey{Class: CacheClassCorrelation, Resource: key.String(), Query: targetFrameworkID}
	out, err := LoadAs(ctx, m.cache, ck, func(ctx context.Context) ([]domain.CorrelationMapping, error) {
		return m.correlate(ctx, key, targetFrameworkID)
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("Found %d mappings", len(out))
	return slices.Clone(out), nil
}

func (m *Mapper) correlate(
	ctx context.Context, key domain.ReferenceKey, targetFrameworkID string,
) ([]domain.CorrelationMapping, error) {
	var src, dst *frameworkIndex
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		src, err = m.frameworks.framework(gctx, key.FrameworkID)
		return err
	})
	g.Go(func() (err error) {
		dst, err = m.frameworks.framework(gctx, targetFrameworkID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if _, ok := src.refs[key.ReferenceID]; !ok {
		return nil, &domain.NotFoundError{Kind: "reference", ID: key.String()}
	}
	srcTokens := src.tokenSets[key.ReferenceID]

	out := []domain.CorrelationMapping{}
	for _, ref := range dst.ordered {
		dstKey := ref.Key()
		s, basis := m.strength(key, srcTokens, dstKey, dst.tokenSets[ref.ID])
		if s < m.thresholds.Complementary {
			continue
		}
		out = append(out, domain.CorrelationMapping{
			Source:   key,
			Target:   dstKey,
			Title:    ref.Title,
			Strength: s,
			Label:    m.thresholds.Label(s),
			Basis:    basis,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Strength != out[j].Strength {
			return out[i].Strength > out[j].Strength
		}
		return out[i].Target.ReferenceID < out[j].Target.ReferenceID
	})
	return out, nil
}

// FindGaps reports, for each source reference at or above threshold and each
// target framework, the cases where no target reference reaches the related
// threshold. An empty threshold includes every source reference.
func (m *Mapper) FindGaps(
	ctx context.Context, sourceFrameworkID string, targetFrameworkIDs []string, threshold domain.Severity,
) ([]domain.Gap, error) {
	logger.Section("Find Gaps")

	if sourceFrameworkID == "" {
		return nil, fmt.Errorf("%w: source framework is required", domain.ErrInvalidInput)
	}
	if threshold != "" && !threshold.IsValid() {
		return nil, fmt.Errorf("%w: unknown severity %q", domain.ErrInvalidInput, threshold)
	}
	targets := uniqueSorted(targetFrameworkIDs)
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: at least one target framework is required", domain.ErrInvalidInput)
	}
	if slices.Contains(targets, sourceFrameworkID) {
		return nil, fmt.Errorf("%w: source framework %s is also a target", domain.ErrInvalidInput, sourceFrameworkID)
	}
	logger.Debug("Source: %s, targets: %v, threshold: %q", sourceFrameworkID, targets, threshold)

	ck := CacheKey{
		Class:    CacheClassGaps,
		Resource: sourceFrameworkID,
		Query:    strings.Join(targets, ",") + "#" + string(threshold),
	}
	out, err := LoadAs(ctx, m.cache, ck, func(ctx context.Context) ([]domain.Gap, error) {
		return m.findGaps(ctx, sourceFrameworkID, targets, threshold)
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("Found %d gaps", len(out))
	return slices.Clone(out), nil
}

func (m *Mapper) findGaps(
	ctx context.Context, sourceID string, targets []string, threshold domain.Severity,
) ([]domain.Gap, error) {
	all := append([]string{sourceID}, targets...)
	loaded := make([]*frameworkIndex, len(all))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range all {
		g.Go(func() (err error) {
			loaded[i], err = m.frameworks.framework(gctx, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	src, dsts := loaded[0], loaded[1:]

	gaps := []domain.Gap{}
	for _, ref := range src.ordered {
		if threshold != "" && !ref.Severity.AtLeast(threshold) {
			continue
		}
		srcKey := ref.Key()
		srcTokens := src.tokenSets[ref.ID]

		for _, dst := range dsts {
			best := 0.0
			var bestKey *domain.ReferenceKey
			for _, cand := range dst.ordered {
				k := cand.Key()
				s, _ := m.strength(srcKey, srcTokens, k, dst.tokenSets[cand.ID])
				if s > best {
					best = s
					bestKey = &k
				}
			}
			if best >= m.thresholds.Related {
				continue
			}
			gaps = append(gaps, domain.Gap{
				Source:          srcKey,
				SourceTitle:     ref.Title,
				Severity:        ref.Severity,
				TargetFramework: dst.framework.ID,
				BestStrength:    best,
				BestMatch:       bestKey,
			})
		}
	}
	return gaps, nil
}

