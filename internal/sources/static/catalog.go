package static

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/govlens/internal/core/domain"
)

type catalogFile struct {
	Frameworks []domain.FrameworkDescriptor `yaml:"frameworks"`
}

// parseCatalog decodes index.yaml and checks every descriptor.
func parseCatalog(data []byte) ([]domain.FrameworkDescriptor, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: bundle index: %v", domain.ErrMalformedContent, err)
	}

	seen := make(map[string]bool, len(f.Frameworks))
	for _, d := range f.Frameworks {
		switch {
		case d.ID == "":
			return nil, fmt.Errorf("%w: bundle index: framework without id", domain.ErrMalformedContent)
		case seen[d.ID]:
			return nil, fmt.Errorf("%w: bundle index: duplicate framework %q", domain.ErrMalformedContent, d.ID)
		case len(d.Resources) == 0:
			return nil, fmt.Errorf("%w: bundle index: framework %q has no resources", domain.ErrMalformedContent, d.ID)
		}
		seen[d.ID] = true
		for _, rid := range d.Resources {
			if !strings.HasPrefix(rid, d.ID+"/") {
				return nil, fmt.Errorf("%w: bundle index: resource %q outside framework %q",
					domain.ErrMalformedContent, rid, d.ID)
			}
		}
	}
	return f.Frameworks, nil
}
