// Package file provides the file-based configuration adapter.
//
// Configuration is a TOML file (default ~/.govlens/config.toml) decoded over
// domain.DefaultSettings, so a file only needs the keys it changes. Unknown
// keys and invalid values are rejected with domain.ErrInvalidInput.
package file
