// Package yaml provides a Normaliser for YAML framework documents.
//
// A resource is either a single reference mapping, a list of references, or
// a mapping with a "references" list (aliases: "controls", "risks",
// "mitigations"). Each entry is decoded and validated on its own, so one bad
// entry never drops its siblings.
package yaml
