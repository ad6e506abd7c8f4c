package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
	"github.com/custodia-labs/govlens/internal/logger"
)

// maxParallelResources bounds concurrent resource fetches per framework.
const maxParallelResources = 4

// resourceFetcher is the subset of FetchLayer used by FrameworkLoader.
type resourceFetcher interface {
	Fetch(ctx context.Context, source, resourceID string) (*FetchResult, error)
}

// snapshotPruner is implemented by fetchers that keep live snapshots.
type snapshotPruner interface {
	PruneSnapshots(ctx context.Context, frameworkID string, keep []string) (int, error)
}

// FrameworkLoader fetches every resource of a framework and normalises it
// into References. A bad resource never fails the whole framework.
type FrameworkLoader struct {
	fetch       resourceFetcher
	normalisers map[string]driven.Normaliser
	now         func() time.Time
	telemetry   driven.Telemetry
}

// NewFrameworkLoader creates a loader with the given normalisers.
func NewFrameworkLoader(
	fetch resourceFetcher, normalisers []driven.Normaliser, telemetry driven.Telemetry,
) *FrameworkLoader {
	if telemetry == nil {
		telemetry = driven.NopTelemetry{}
	}
	l := &FrameworkLoader{
		fetch:       fetch,
		normalisers: make(map[string]driven.Normaliser),
		now:         time.Now,
		telemetry:   telemetry,
	}
	for _, n := range normalisers {
		for _, ext := range n.Extensions() {
			l.normalisers[strings.ToLower(ext)] = n
		}
	}
	return l
}

// resourceOutcome is the result of loading one resource.
type resourceOutcome struct {
	refs        []domain.Reference
	failed      []string
	origin      domain.OriginKind
	unavailable bool
	notFound    bool
}

// Load fetches and normalises a framework.
//
// Resources that are missing, unavailable or malformed are listed in
// Framework.FailedReferences. Load fails only when no reference could be loaded.
func (l *FrameworkLoader) Load(
	ctx context.Context, desc domain.FrameworkDescriptor,
) (domain.Framework, []domain.Reference, error) {
	logger.Section("Load " + desc.ID)
	start := l.now()

	outcomes := make([]resourceOutcome, len(desc.Resources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelResources)
	for i, rid := range desc.Resources {
		g.Go(func() error {
			out, err := l.loadResource(gctx, desc, rid)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Framework{}, nil, err
	}

	fw := domain.Framework{
		ID:       desc.ID,
		Name:     desc.Name,
		Version:  desc.Version,
		Kind:     desc.Kind,
		Origin:   domain.OriginLive,
		LoadedAt: l.now(),
	}
	if fw.Name == "" {
		fw.Name = desc.ID
	}
	if !fw.Kind.IsValid() {
		fw.Kind = domain.KindFramework
	}

	var (
		refs        []domain.Reference
		seen        = make(map[string]bool)
		unavailable int
		notFound    int
	)
	for i, out := range outcomes {
		if out.origin == domain.OriginStatic {
			fw.Origin = domain.OriginStatic
		}
		if out.unavailable {
			unavailable++
		}
		if out.notFound {
			notFound++
		}
		fw.FailedReferences = append(fw.FailedReferences, out.failed...)
		for _, ref := range out.refs {
			if seen[ref.ID] {
				fw.FailedReferences = append(fw.FailedReferences, desc.Resources[i]+"#"+ref.ID)
				logger.Warn("load %s: duplicate reference %s in %s", desc.ID, ref.ID, desc.Resources[i])
				continue
			}
			seen[ref.ID] = true
			ref.FrameworkID = desc.ID
			if ref.Category == "" {
				ref.Category = defaultCategory(fw.Kind)
			}
			refs = append(refs, ref)
			fw.ReferenceIDs = append(fw.ReferenceIDs, ref.ID)
		}
	}

	l.telemetry.Record(driven.EventLoadLatency, map[string]any{
		"op":        "framework",
		"framework": desc.ID,
		"seconds":   l.now().Sub(start).Seconds(),
	})

	if len(refs) == 0 {
		l.telemetry.Record(driven.EventLoadFailed, map[string]any{"framework": desc.ID})
		switch {
		case unavailable > 0:
			return domain.Framework{}, nil, &domain.SourceUnavailableError{
				Source:         desc.Source,
				ResourceID:     desc.ID,
				FallbackServed: fw.Origin == domain.OriginStatic,
			}
		case notFound == len(desc.Resources):
			return domain.Framework{}, nil, &domain.NotFoundError{Kind: "framework", ID: desc.ID}
		default:
			return domain.Framework{}, nil, &domain.MalformedContentError{
				ResourceID: desc.ID,
				Reason:     "no valid references",
			}
		}
	}

	if fw.Origin == domain.OriginLive {
		l.pruneSnapshots(ctx, desc)
	}

	logger.Info("Loaded %s: %d references, %d failed, origin %s",
		desc.ID, len(refs), len(fw.FailedReferences), fw.Origin)
	return fw, refs, nil
}

// pruneSnapshots drops snapshots of resources the framework no longer lists.
// It only runs after a fully live load, so the remaining snapshots are fresh.
func (l *FrameworkLoader) pruneSnapshots(ctx context.Context, desc domain.FrameworkDescriptor) {
	p, ok := l.fetch.(snapshotPruner)
	if !ok {
		return
	}
	n, err := p.PruneSnapshots(ctx, desc.ID, desc.Resources)
	if err != nil {
		logger.Warn("load %s: pruning snapshots: %v", desc.ID, err)
		return
	}
	if n > 0 {
		logger.Debug("load %s: pruned %d stale snapshots", desc.ID, n)
	}
}

// loadResource fetches and normalises one resource. Only cancellation is
// returned as an error; every other failure is recorded in the outcome.
func (l *FrameworkLoader) loadResource(
	ctx context.Context, desc domain.FrameworkDescriptor, rid string,
) (resourceOutcome, error) {
	res, err := l.fetch.Fetch(ctx, desc.Source, rid)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCancelled):
			return resourceOutcome{}, err
		case errors.Is(err, domain.ErrNotFound):
			logger.Warn("load %s: resource %s not found", desc.ID, rid)
			return resourceOutcome{failed: []string{rid}, notFound: true}, nil
		case errors.Is(err, domain.ErrSourceUnavailable):
			logger.Warn("load %s: resource %s unavailable: %v", desc.ID, rid, err)
			return resourceOutcome{failed: []string{rid}, unavailable: true}, nil
		default:
			logger.Warn("load %s: resource %s failed: %v", desc.ID, rid, err)
			return resourceOutcome{failed: []string{rid}}, nil
		}
	}

	n, ok := l.normalisers[strings.ToLower(path.Ext(rid))]
	if !ok {
		logger.Warn("load %s: no normaliser for %s", desc.ID, rid)
		return resourceOutcome{failed: []string{rid}, origin: res.Origin}, nil
	}

	result, err := n.Normalise(desc.ID, rid, res.Data)
	if err != nil {
		logger.Warn("load %s: %v", desc.ID, err)
		return resourceOutcome{failed: []string{rid}, origin: res.Origin}, nil
	}

	return resourceOutcome{refs: result.References, failed: result.Failed, origin: res.Origin}, nil
}

func defaultCategory(kind domain.FrameworkKind) string {
	switch kind {
	case domain.KindRisks:
		return "risk"
	case domain.KindMitigations:
		return "mitigation"
	default:
		return "control"
	}
}

// descriptorIndex validates and indexes a catalogue by framework ID.
func descriptorIndex(catalog []domain.FrameworkDescriptor) (map[string]domain.FrameworkDescriptor, []string, error) {
	byID := make(map[string]domain.FrameworkDescriptor, len(catalog))
	ids := make([]string, 0, len(catalog))
	for _, d := range catalog {
		if d.ID == "" {
			return nil, nil, fmt.Errorf("%w: framework descriptor without id", domain.ErrInvalidInput)
		}
		if _, dup := byID[d.ID]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate framework %q", domain.ErrInvalidInput, d.ID)
		}
		byID[d.ID] = d
		ids = append(ids, d.ID)
	}
	return byID, ids, nil
}
