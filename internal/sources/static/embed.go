package static

import "embed"

// bundleFS holds the bundled catalogue, framework resources and curated
// mapping tables.
//
//go:embed bundle
var bundleFS embed.FS
