package domain

import (
	"fmt"
	"strings"
	"time"
)

// OriginKind records where a Framework's content was served from.
type OriginKind string

// Available origins.
const (
	// OriginLive means every resource came from a live upstream.
	OriginLive OriginKind = "live"

	// OriginStatic means at least one resource was served from a fallback snapshot.
	OriginStatic OriginKind = "static"
)

// FrameworkKind classifies the documents a framework contains.
type FrameworkKind string

// Available framework kinds.
const (
	KindFramework   FrameworkKind = "framework"
	KindRisks       FrameworkKind = "risks"
	KindMitigations FrameworkKind = "mitigations"
)

// IsValid returns true if the kind is recognised.
func (k FrameworkKind) IsValid() bool {
	switch k {
	case KindFramework, KindRisks, KindMitigations:
		return true
	default:
		return false
	}
}

// Framework is a named collection of References loaded from one logical origin.
// A refresh replaces the whole value; loaded Frameworks are never edited in place.
type Framework struct {
	// ID is globally unique and immutable.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Version is the upstream version tag.
	Version string `json:"version,omitempty"`

	// Kind classifies the contents.
	Kind FrameworkKind `json:"kind"`

	// Origin reports whether any fallback content was served.
	Origin OriginKind `json:"origin"`

	// LoadedAt is when the last successful load completed.
	LoadedAt time.Time `json:"loaded_at"`

	// ReferenceIDs lists the loaded references in source order.
	ReferenceIDs []string `json:"reference_ids"`

	// FailedReferences lists resources or entries that could not be parsed.
	FailedReferences []string `json:"failed_references,omitempty"`
}

// Reference is one addressable unit of content: a control, a risk or a mitigation.
type Reference struct {
	// FrameworkID is the owning framework.
	FrameworkID string `json:"framework_id"`

	// ID is unique within the owning framework.
	ID string `json:"id"`

	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category,omitempty"`
	Severity Severity `json:"severity,omitempty"`

	// Sections lists the section headings in document order.
	Sections []string `json:"sections,omitempty"`

	// Tags is a set of free-form labels.
	Tags []string `json:"tags,omitempty"`

	// Status is the compliance status label (e.g. "final", "draft").
	Status string `json:"status,omitempty"`
}

// Key returns the stable global key of the reference.
func (r Reference) Key() ReferenceKey {
	return ReferenceKey{FrameworkID: r.FrameworkID, ReferenceID: r.ID}
}

// ReferenceKey identifies a Reference across frameworks.
type ReferenceKey struct {
	FrameworkID string `json:"framework_id"`
	ReferenceID string `json:"reference_id"`
}

// String renders the key as "framework:reference".
func (k ReferenceKey) String() string {
	return k.FrameworkID + ":" + k.ReferenceID
}

// ParseReferenceKey parses a "framework:reference" key.
func ParseReferenceKey(s string) (ReferenceKey, error) {
	fw, ref, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || fw == "" || ref == "" {
		return ReferenceKey{}, fmt.Errorf("%w: reference key %q must be framework:reference", ErrInvalidInput, s)
	}
	return ReferenceKey{FrameworkID: fw, ReferenceID: ref}, nil
}

// FrameworkDescriptor is a catalogue entry describing how to load a framework.
type FrameworkDescriptor struct {
	ID      string        `toml:"id" yaml:"id" validate:"required"`
	Name    string        `toml:"name" yaml:"name"`
	Version string        `toml:"version" yaml:"version"`
	Kind    FrameworkKind `toml:"kind" yaml:"kind"`

	// Source names the live loader. Empty means static only.
	Source string `toml:"source" yaml:"source"`

	// Resources lists resource IDs ("<framework-id>/<path>") in order.
	Resources []string `toml:"resources" yaml:"resources" validate:"required,min=1,dive,required"`
}
