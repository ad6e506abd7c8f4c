// Package domain defines the core types of govlens.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Framework: a named collection of References from one origin
//   - Reference: one control, risk or mitigation write-up
//   - SearchHit: a ranked, ephemeral search result
//   - CorrelationMapping and Gap: derived cross-framework relationships
//   - Settings: runtime configuration with built-in defaults
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
