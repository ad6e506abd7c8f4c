package yaml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
	"github.com/custodia-labs/govlens/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// listKeys are the top-level keys that may hold the reference list.
var listKeys = []string{"references", "controls", "risks", "mitigations"}

// entry is the on-disk shape of one reference.
type entry struct {
	ID          string   `yaml:"id" validate:"required,max=64,excludesall=/:#"`
	Title       string   `yaml:"title" validate:"required"`
	Content     string   `yaml:"content"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Severity    string   `yaml:"severity"`
	Status      string   `yaml:"status"`
	Tags        []string `yaml:"tags" validate:"dive,required"`
	Sections    []string `yaml:"sections"`
}

// Normaliser handles .yaml and .yml resources.
type Normaliser struct {
	validate *validator.Validate
}

// New creates a new YAML normaliser.
func New() *Normaliser {
	return &Normaliser{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".yaml", ".yml"}
}

// Normalise parses a YAML resource into References.
func (n *Normaliser) Normalise(frameworkID, resourceID string, data []byte) (*driven.NormaliseResult, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &domain.MalformedContentError{ResourceID: resourceID, Reason: err.Error()}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &domain.MalformedContentError{ResourceID: resourceID, Reason: "empty document"}
	}

	items, err := entryNodes(doc.Content[0])
	if err != nil {
		return nil, &domain.MalformedContentError{ResourceID: resourceID, Reason: err.Error()}
	}

	result := &driven.NormaliseResult{}
	for i, node := range items {
		ref, err := n.decodeEntry(node)
		if err != nil {
			name := entryName(node, i)
			logger.Debug("yaml: %s#%s skipped: %v", resourceID, name, err)
			result.Failed = append(result.Failed, resourceID+"#"+name)
			continue
		}
		ref.FrameworkID = frameworkID
		result.References = append(result.References, ref)
	}
	return result, nil
}

// entryNodes locates the reference entries below the root node.
func entryNodes(root *yaml.Node) ([]*yaml.Node, error) {
	switch root.Kind {
	case yaml.SequenceNode:
		return root.Content, nil
	case yaml.MappingNode:
		for _, key := range listKeys {
			if v := mappingValue(root, key); v != nil {
				if v.Kind != yaml.SequenceNode {
					return nil, fmt.Errorf("%q must be a list", key)
				}
				return v.Content, nil
			}
		}
		if mappingValue(root, "id") != nil {
			return []*yaml.Node{root}, nil
		}
		return nil, fmt.Errorf("no reference list found (expected one of %s)", strings.Join(listKeys, ", "))
	default:
		return nil, fmt.Errorf("unexpected top-level %s", kindName(root.Kind))
	}
}

func (n *Normaliser) decodeEntry(node *yaml.Node) (domain.Reference, error) {
	var e entry
	if err := node.Decode(&e); err != nil {
		return domain.Reference{}, err
	}
	if err := n.validate.Struct(e); err != nil {
		return domain.Reference{}, err
	}

	ref := domain.Reference{
		ID:       e.ID,
		Title:    strings.TrimSpace(e.Title),
		Content:  strings.TrimSpace(e.Content),
		Category: strings.ToLower(e.Category),
		Status:   strings.ToLower(e.Status),
		Tags:     e.Tags,
		Sections: e.Sections,
	}
	if ref.Content == "" {
		ref.Content = strings.TrimSpace(e.Description)
	}
	if e.Severity != "" {
		sev, err := domain.ParseSeverity(e.Severity)
		if err != nil {
			return domain.Reference{}, err
		}
		ref.Severity = sev
	}
	return ref, nil
}

// entryName identifies an entry in failure lists: its id when readable,
// otherwise its position.
func entryName(node *yaml.Node, index int) string {
	if node.Kind == yaml.MappingNode {
		if v := mappingValue(node, "id"); v != nil && v.Kind == yaml.ScalarNode && v.Value != "" {
			return v.Value
		}
	}
	return strconv.Itoa(index)
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "node"
	}
}
