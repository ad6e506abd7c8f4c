package normalisers

import (
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
	"github.com/custodia-labs/govlens/internal/normalisers/html"
	"github.com/custodia-labs/govlens/internal/normalisers/markdown"
	"github.com/custodia-labs/govlens/internal/normalisers/plaintext"
	"github.com/custodia-labs/govlens/internal/normalisers/yaml"
)

// All returns every built-in normaliser.
func All() []driven.Normaliser {
	return []driven.Normaliser{
		markdown.New(),
		yaml.New(),
		html.New(),
		plaintext.New(),
	}
}
