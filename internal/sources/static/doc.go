// Package static implements the bundled fallback source.
//
// The bundle is embedded in the binary: index.yaml lists the default
// framework catalogue, each framework's resources live under a directory
// named after the framework ID, and mappings/*.yaml hold curated
// cross-framework mapping tables. The loader never fails for a bundled
// resource ID.
package static
