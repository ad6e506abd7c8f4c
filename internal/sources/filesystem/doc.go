// Package filesystem implements a SourceLoader over a local directory.
//
// Resource "<framework-id>/<path>" is read from <root>/<framework-id>/<path>.
// The loader can also watch the directory tree and report changed resource
// IDs so cached frameworks are reloaded after local edits.
package filesystem
