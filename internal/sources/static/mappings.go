package static

import (
	"fmt"
	"io/fs"
	"path"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
)

// Ensure MappingTable implements the interface.
var _ driven.MappingTable = (*MappingTable)(nil)

type mappingFile struct {
	Mappings []mappingEntry `yaml:"mappings"`
}

type mappingEntry struct {
	Source        string  `yaml:"source"`
	Target        string  `yaml:"target"`
	Strength      float64 `yaml:"strength"`
	Bidirectional bool    `yaml:"bidirectional"`
}

type pair struct {
	source domain.ReferenceKey
	target domain.ReferenceKey
}

// MappingTable is a curated, direction-specific mapping table.
type MappingTable struct {
	entries map[pair]float64
	curated []domain.CuratedMapping
}

// NewMappingTable indexes curated entries. A bidirectional entry is also
// stored in reverse; when several entries cover a pair the strongest wins.
func NewMappingTable(curated []domain.CuratedMapping) *MappingTable {
	t := &MappingTable{entries: make(map[pair]float64), curated: curated}
	for _, c := range curated {
		t.put(pair{c.Source, c.Target}, c.Strength)
		if c.Bidirectional {
			t.put(pair{c.Target, c.Source}, c.Strength)
		}
	}
	return t
}

func (t *MappingTable) put(p pair, strength float64) {
	if cur, ok := t.entries[p]; !ok || strength > cur {
		t.entries[p] = strength
	}
}

// Lookup implements driven.MappingTable.
func (t *MappingTable) Lookup(source, target domain.ReferenceKey) (float64, bool) {
	s, ok := t.entries[pair{source, target}]
	return s, ok
}

// Len returns the number of curated entries as written.
func (t *MappingTable) Len() int {
	return len(t.curated)
}

// Entries returns a copy of the curated entries.
func (t *MappingTable) Entries() []domain.CuratedMapping {
	return append([]domain.CuratedMapping(nil), t.curated...)
}

// LoadMappings reads every *.yaml file in dir. A missing directory yields
// an empty table.
func LoadMappings(fsys fs.FS, dir string) (*MappingTable, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	var curated []domain.CuratedMapping
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		entries, err := ParseMappings(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		curated = append(curated, entries...)
	}
	return NewMappingTable(curated), nil
}

// ParseMappings decodes one mapping file.
func ParseMappings(data []byte) ([]domain.CuratedMapping, error) {
	var f mappingFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedContent, err)
	}

	out := make([]domain.CuratedMapping, 0, len(f.Mappings))
	for i, m := range f.Mappings {
		src, err := domain.ParseReferenceKey(m.Source)
		if err != nil {
			return nil, fmt.Errorf("mapping %d: %w", i, err)
		}
		dst, err := domain.ParseReferenceKey(m.Target)
		if err != nil {
			return nil, fmt.Errorf("mapping %d: %w", i, err)
		}
		if m.Strength <= 0 || m.Strength > 1 {
			return nil, fmt.Errorf("%w: mapping %d: strength %v outside (0, 1]", domain.ErrInvalidInput, i, m.Strength)
		}
		if src.FrameworkID == dst.FrameworkID {
			return nil, fmt.Errorf("%w: mapping %d: %s maps within one framework", domain.ErrInvalidInput, i, src)
		}
		out = append(out, domain.CuratedMapping{
			Source:        src,
			Target:        dst,
			Strength:      m.Strength,
			Bidirectional: m.Bidirectional,
		})
	}
	return out, nil
}
