// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - SourceLoader: fetches raw resource bytes (GitHub, filesystem, static bundle)
//   - Normaliser: parses resource bytes into References
//   - CatalogProvider: lists the frameworks to serve
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - SnapshotStore: last-known-good bytes of live resources. Without it the
//     static bundle is the only fallback.
//   - MappingTable: curated mappings. Without it correlation is term overlap only.
//   - Telemetry: event sink. Defaults to NopTelemetry.
//   - ChangeNotifier: upstream change notifications for cache invalidation.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, source, or normaliser package
package driven
