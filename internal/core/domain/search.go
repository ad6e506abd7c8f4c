package domain

import (
	"slices"
	"strings"
)

// SearchFilters narrow a search after scoring. Empty sets match everything.
type SearchFilters struct {
	// Severities keeps hits whose severity is in the set.
	Severities []Severity `json:"severities,omitempty"`

	// Statuses keeps hits whose compliance status is in the set.
	Statuses []string `json:"statuses,omitempty"`

	// FrameworkIDs keeps hits from the listed frameworks.
	FrameworkIDs []string `json:"framework_ids,omitempty"`

	// Categories keeps hits whose category is in the set.
	Categories []string `json:"categories,omitempty"`
}

// IsEmpty returns true if no filter is set.
func (f SearchFilters) IsEmpty() bool {
	return len(f.Severities) == 0 && len(f.Statuses) == 0 &&
		len(f.FrameworkIDs) == 0 && len(f.Categories) == 0
}

// Clone returns a copy that shares no slices with f.
func (f SearchFilters) Clone() SearchFilters {
	return SearchFilters{
		Severities:   slices.Clone(f.Severities),
		Statuses:     slices.Clone(f.Statuses),
		FrameworkIDs: slices.Clone(f.FrameworkIDs),
		Categories:   slices.Clone(f.Categories),
	}
}

// Match reports whether a reference passes every filter.
func (f SearchFilters) Match(ref *Reference) bool {
	if len(f.Severities) > 0 && !slices.Contains(f.Severities, ref.Severity) {
		return false
	}
	if len(f.Statuses) > 0 && !containsFold(f.Statuses, ref.Status) {
		return false
	}
	if len(f.FrameworkIDs) > 0 && !slices.Contains(f.FrameworkIDs, ref.FrameworkID) {
		return false
	}
	if len(f.Categories) > 0 && !containsFold(f.Categories, ref.Category) {
		return false
	}
	return true
}

// CacheKey returns a canonical string for the filter set.
// Order of values does not matter.
func (f SearchFilters) CacheKey() string {
	part := func(name string, vals []string) string {
		sorted := slices.Clone(vals)
		slices.Sort(sorted)
		return name + "=" + strings.Join(sorted, ",")
	}
	sev := make([]string, len(f.Severities))
	for i, s := range f.Severities {
		sev[i] = string(s)
	}
	return strings.Join([]string{
		part("sev", sev),
		part("status", f.Statuses),
		part("fw", f.FrameworkIDs),
		part("cat", f.Categories),
	}, ";")
}

// SearchHit is one ranked result. It is produced per query and never persisted.
type SearchHit struct {
	Key      ReferenceKey  `json:"key"`
	Title    string        `json:"title"`
	Snippet  string        `json:"snippet"`
	Score    float64       `json:"score"`
	Severity Severity      `json:"severity"`
	Filters  SearchFilters `json:"filters"`
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
