package domain

import (
	"fmt"
	"strings"
)

// Severity ranks how serious a Reference is.
type Severity string

// Available severities, lowest first.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AllSeverities returns every severity from lowest to highest.
func AllSeverities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// Rank orders severities; unknown values rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// IsValid returns true if the severity is recognised.
func (s Severity) IsValid() bool {
	return s.Rank() > 0
}

// AtLeast reports whether s is at or above threshold.
func (s Severity) AtLeast(threshold Severity) bool {
	return s.Rank() >= threshold.Rank()
}

// String returns the string representation.
func (s Severity) String() string {
	return string(s)
}

// ParseSeverity parses a case-insensitive severity name.
func ParseSeverity(v string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(v)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, v)
	}
	return s, nil
}
