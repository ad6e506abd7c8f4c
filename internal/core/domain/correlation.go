package domain

// MappingLabel is the discrete relationship class of a CorrelationMapping.
type MappingLabel string

// Available labels, strongest first.
const (
	LabelEquivalent    MappingLabel = "equivalent"
	LabelRelated       MappingLabel = "related"
	LabelComplementary MappingLabel = "complementary"
	LabelNone          MappingLabel = "none"
)

// MappingBasis records what produced a mapping's strength.
type MappingBasis string

// Available bases.
const (
	BasisTermOverlap MappingBasis = "term_overlap"
	BasisCurated     MappingBasis = "curated"
)

// Thresholds are the strength cut points for mapping labels.
type Thresholds struct {
	Equivalent    float64 `toml:"equivalent" validate:"gtfield=Related,lte=1"`
	Related       float64 `toml:"related" validate:"gtfield=Complementary"`
	Complementary float64 `toml:"complementary" validate:"gt=0"`
}

// DefaultThresholds returns the 0.8 / 0.5 / 0.2 cut points.
func DefaultThresholds() Thresholds {
	return Thresholds{Equivalent: 0.8, Related: 0.5, Complementary: 0.2}
}

// Label classifies a strength.
func (t Thresholds) Label(strength float64) MappingLabel {
	switch {
	case strength >= t.Equivalent:
		return LabelEquivalent
	case strength >= t.Related:
		return LabelRelated
	case strength >= t.Complementary:
		return LabelComplementary
	default:
		return LabelNone
	}
}

// CorrelationMapping is a derived relationship between References in two frameworks.
// It is never authoritative over the References themselves.
type CorrelationMapping struct {
	Source   ReferenceKey `json:"source"`
	Target   ReferenceKey `json:"target"`
	Title    string       `json:"target_title"`
	Strength float64      `json:"strength"`
	Label    MappingLabel `json:"label"`
	Basis    MappingBasis `json:"basis"`
}

// Gap is a source Reference without a sufficiently strong mapping in a target framework.
type Gap struct {
	Source          ReferenceKey  `json:"source"`
	SourceTitle     string        `json:"source_title"`
	Severity        Severity      `json:"severity"`
	TargetFramework string        `json:"target_framework"`
	BestStrength    float64       `json:"best_strength"`
	BestMatch       *ReferenceKey `json:"best_match,omitempty"`
}

// CuratedMapping is one explicit entry of a curated mapping table.
type CuratedMapping struct {
	Source        ReferenceKey
	Target        ReferenceKey
	Strength      float64
	Bidirectional bool
}
