// Package services implements the driving port interfaces.
//
// The read path is layered: FetchLayer guards live sources with circuit
// breakers and falls back to snapshots, FrameworkLoader normalises fetched
// resources, Cache coalesces concurrent loads, and Engine publishes the
// loaded frameworks as lock-free index slices for search and mapping.
//
// Services are pure Go with no CGO dependencies.
package services
