// Package sources builds the fixed table of source loaders used by the
// fetch layer.
//
// Live loaders (github, filesystem) are consulted first and protected by
// circuit breakers. The fallback chain is the snapshot store followed by
// the embedded static bundle.
package sources

import (
	"context"
	"fmt"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
	"github.com/custodia-labs/govlens/internal/logger"
	"github.com/custodia-labs/govlens/internal/sources/filesystem"
	"github.com/custodia-labs/govlens/internal/sources/github"
	"github.com/custodia-labs/govlens/internal/sources/snapshot"
	"github.com/custodia-labs/govlens/internal/sources/static"
)

// Registry is the loader table for one process.
type Registry struct {
	Live      []driven.SourceLoader
	Fallbacks []driven.SourceLoader
	Static    *static.Loader
	Notifiers []driven.ChangeNotifier
}

// Build creates the registry from settings. store may be nil when
// snapshots are disabled.
func Build(ctx context.Context, cfg domain.SourceSettings, store driven.SnapshotStore) (*Registry, error) {
	bundle, err := static.Default()
	if err != nil {
		return nil, fmt.Errorf("static bundle: %w", err)
	}
	r := &Registry{Static: bundle}

	if cfg.GitHub.Enabled {
		ghCfg, err := github.ConfigFromSettings(cfg.GitHub)
		if err != nil {
			return nil, err
		}
		if ghCfg.Token == "" {
			logger.Warn("github: no token in $%s, using anonymous rate limits", cfg.GitHub.TokenEnv)
		}
		gl, err := github.New(ctx, ghCfg)
		if err != nil {
			return nil, err
		}
		r.Live = append(r.Live, gl)
	}

	if cfg.Filesystem.Enabled {
		fl, err := filesystem.New(cfg.Filesystem.Root)
		if err != nil {
			return nil, err
		}
		r.Live = append(r.Live, fl)
		if cfg.Filesystem.Watch {
			r.Notifiers = append(r.Notifiers, fl)
		}
	}

	if store != nil {
		r.Fallbacks = append(r.Fallbacks, snapshot.New(store))
	}
	r.Fallbacks = append(r.Fallbacks, bundle)
	return r, nil
}

// Names returns the names of the live loaders.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Live))
	for _, l := range r.Live {
		names = append(names, l.Name())
	}
	return names
}

// Catalog merges configured framework descriptors over the bundled
// catalogue. A configured descriptor replaces the bundled one with the same
// ID; new IDs are appended in configuration order.
func (r *Registry) Catalog(configured []domain.FrameworkDescriptor) []domain.FrameworkDescriptor {
	base := r.Static.Catalog()
	pos := make(map[string]int, len(base))
	for i, d := range base {
		pos[d.ID] = i
	}
	for _, d := range configured {
		if i, ok := pos[d.ID]; ok {
			base[i] = d
			continue
		}
		pos[d.ID] = len(base)
		base = append(base, d)
	}
	return base
}
